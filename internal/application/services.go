package application

import (
	"github.com/wms-platform/warehouse-core/internal/core"
	"github.com/wms-platform/warehouse-core/internal/domain"
	"github.com/wms-platform/warehouse-core/pkg/schema"
)

// Services bundles the application services behind the HTTP API
type Services struct {
	Inventory *InventoryApplicationService
	Inbound   *InboundApplicationService
	Outbound  *OutboundApplicationService
	Picking   *PickingApplicationService
	Waves     *WaveApplicationService
}

// NewServices wires the core components over repos. A nil metadata validator
// uses the built-in schema.
func NewServices(repos domain.Repositories, clock domain.Clock, exec *Executor, metadata *schema.Validator) *Services {
	if metadata == nil {
		metadata = schema.NewDefaultValidator()
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}

	ledger := core.NewLedger(repos, clock)
	allocator := core.NewAllocator(repos, clock, ledger)
	fulfillment := core.NewFulfillment(repos, clock, ledger)

	return &Services{
		Inventory: NewInventoryApplicationService(ledger, exec),
		Inbound:   NewInboundApplicationService(core.NewReceiving(repos, clock, ledger), metadata, exec),
		Outbound:  NewOutboundApplicationService(fulfillment, allocator, metadata, exec),
		Picking:   NewPickingApplicationService(core.NewPicking(repos, clock, ledger), exec),
		Waves:     NewWaveApplicationService(core.NewWaves(repos, clock, allocator, fulfillment), exec),
	}
}
