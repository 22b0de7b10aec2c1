package councilengine

import (
	"log/slog"
	"time"

	httpadapter "conclave/contexts/governance/council-engine/adapters/http"
	"conclave/contexts/governance/council-engine/adapters/memory"
	"conclave/contexts/governance/council-engine/application/commands"
	"conclave/contexts/governance/council-engine/application/queries"
	"conclave/contexts/governance/council-engine/domain/entities"
	"conclave/contexts/governance/council-engine/ports"
)

type Module struct {
	Ledger       commands.LedgerUseCase
	Emergency    commands.EmergencyUseCase
	VoteQueries  queries.VoteQueryUseCase
	DissentViews queries.DissentQueryUseCase
	Handler      httpadapter.Handler
	Store        *memory.Store
}

type Dependencies struct {
	Roster            *entities.Roster
	Votes             ports.VoteRepository
	Outbox            ports.OutboxWriter
	Audit             ports.AuditSink
	Outcomes          ports.OutcomeSink
	Scorer            ports.RelevanceScorer
	Clock             ports.Clock
	IDGen             ports.IDGenerator
	MinCategoryQuorum int
	DissentFloor      float64
	FallbackPanel     []string
	OverturnWindow    time.Duration
	Logger            *slog.Logger
}

func NewModule(deps Dependencies) Module {
	ledger := commands.NewLedgerUseCase(commands.LedgerConfig{
		Roster:            deps.Roster,
		Votes:             deps.Votes,
		Outbox:            deps.Outbox,
		Audit:             deps.Audit,
		Outcomes:          deps.Outcomes,
		Clock:             deps.Clock,
		IDGen:             deps.IDGen,
		MinCategoryQuorum: deps.MinCategoryQuorum,
		DissentFloor:      deps.DissentFloor,
		Logger:            deps.Logger,
	})
	emergency := commands.EmergencyUseCase{
		Ledger:         ledger,
		Scorer:         deps.Scorer,
		FallbackPanel:  deps.FallbackPanel,
		OverturnWindow: deps.OverturnWindow,
		Logger:         deps.Logger,
	}
	voteQueries := queries.VoteQueryUseCase{
		Roster: deps.Roster,
		Votes:  deps.Votes,
	}
	dissentViews := queries.DissentQueryUseCase{
		Votes: deps.Votes,
	}
	return Module{
		Ledger:       ledger,
		Emergency:    emergency,
		VoteQueries:  voteQueries,
		DissentViews: dissentViews,
		Handler: httpadapter.Handler{
			Ledger:       ledger,
			Emergency:    emergency,
			VoteQueries:  voteQueries,
			DissentViews: dissentViews,
			Logger:       deps.Logger,
		},
	}
}

// NewInMemoryModule wires the module against the memory adapter for tests and
// local runs. The store backs every port, including the audit sink.
func NewInMemoryModule(roster *entities.Roster, logger *slog.Logger) Module {
	store := memory.NewStore(nil)
	module := NewModule(Dependencies{
		Roster: roster,
		Votes:  store,
		Outbox: store,
		Audit:  store,
		Scorer: ports.NoopRelevanceScorer{},
		Clock:  store,
		IDGen:  store,
		Logger: logger,
	})
	module.Store = store
	return module
}
