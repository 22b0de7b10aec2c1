// Package councilengine implements the governance voting engine inside the
// governance context.
//
// The module owns the full proposal-vote lifecycle: weighted threshold
// evaluation with early conclusion, dual quorum enforcement, domain-scoped
// vetoes, automatic dissent capture with precedent search, and the emergency
// fast-track with its bounded overturn window. Business rules live in
// domain/application layers; the audit log, event bus, relevance scorer and
// outcome feedback are external collaborators behind ports.
package councilengine
