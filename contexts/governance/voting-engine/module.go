package votingengine

import (
	"log/slog"

	httpadapter "ballotproxy/contexts/governance/voting-engine/adapters/http"
	"ballotproxy/contexts/governance/voting-engine/logic"
	"ballotproxy/contexts/governance/voting-engine/ports"
	"ballotproxy/internal/shared/dispatch"
)

type Module struct {
	Handler httpadapter.Handler
}

type Dependencies struct {
	Proxy  ports.Dispatcher
	Logger *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Handler: httpadapter.Handler{
			Proxy:  deps.Proxy,
			Logger: deps.Logger,
		},
	}
}

// Registrar accepts logic deployments by address.
type Registrar interface {
	Register(address string, logic dispatch.Logic)
}

// RegisterImplementations deploys every shipped voting-engine version.
func RegisterImplementations(registry Registrar, logger *slog.Logger) {
	registry.Register(logic.V1Address, logic.NewV1(logger))
	registry.Register(logic.V2Address, logic.NewV2(logger))
}
