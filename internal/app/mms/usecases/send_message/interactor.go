package send_message

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/contracts"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/domain"
	"github.com/light-bringer/commhistory-mms/internal/pkg/callhandle"
	"github.com/light-bringer/commhistory-mms/internal/pkg/workspace"
)

// Request describes an outgoing multimedia message.
type Request struct {
	SubscriberIdentity *string // optional, nil lets the engine pick
	To                 []string
	Cc                 []string
	Bcc                []string
	Subject            string
	Parts              []domain.PartSpec
}

// Interactor handles the send message use case.
type Interactor struct {
	transport     contracts.Transport
	materializer  contracts.PartMaterializer
	workspaceRoot string
	logger        *zap.Logger
}

// NewInteractor creates a new send message interactor.
// Every send gets its own workspace below workspaceRoot.
func NewInteractor(
	transport contracts.Transport,
	materializer contracts.PartMaterializer,
	workspaceRoot string,
	logger *zap.Logger,
) *Interactor {
	return &Interactor{
		transport:     transport,
		materializer:  materializer,
		workspaceRoot: workspaceRoot,
		logger:        logger,
	}
}

// Execute materializes the parts and dispatches the send. It returns as soon as
// the call is issued; the returned handle owns the workspace and removes it
// when the engine answers.
func (i *Interactor) Execute(ctx context.Context, req *Request) (*callhandle.Handle, error) {
	// 1. Fresh workspace for this attempt
	ws := workspace.New(i.workspaceRoot)
	if !ws.IsValid() {
		return nil, fmt.Errorf("%w: %w", domain.ErrWorkspaceUnavailable, ws.Err())
	}

	// 2. Materialize in order, a partial message is never sent
	parts := make([]domain.MaterializedPart, 0, len(req.Parts))
	for idx, spec := range req.Parts {
		part, err := i.materializer.Materialize(ws.Path(), spec)
		if err != nil {
			i.closeWorkspace(ws)
			return nil, fmt.Errorf("materialize part %d: %w", idx, err)
		}
		parts = append(parts, part)
	}

	// 3. Dispatch
	handle := i.transport.NotifySend(ctx, &contracts.SendRequest{
		SubscriberIdentity: req.SubscriberIdentity,
		To:                 req.To,
		Cc:                 req.Cc,
		Bcc:                req.Bcc,
		Subject:            req.Subject,
		Parts:              parts,
	})

	// 4. From here on only the handle may remove the workspace
	handle.Own(ws, func(err error) {
		i.logger.Warn("failed to remove send workspace", zap.String("path", ws.Path()), zap.Error(err))
	})

	return handle, nil
}

func (i *Interactor) closeWorkspace(ws *workspace.Workspace) {
	if err := ws.Close(); err != nil {
		i.logger.Warn("failed to remove send workspace", zap.String("path", ws.Path()), zap.Error(err))
	}
}
