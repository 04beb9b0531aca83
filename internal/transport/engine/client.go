// Package engine is the gRPC client of the external MMS transport engine.
//
// The engine exposes two services. Push notification delivery lives on
// PushServiceName and message handling on MessageServiceName. Requests and
// replies are google.protobuf.Struct values, so no generated stubs are needed.
//
// Every call runs on its own goroutine and waits for the engine to become
// ready. An unreachable engine therefore shows up as a handle that never
// completes, not as an error.
package engine

import (
	"context"
	"encoding/base64"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/contracts"
	"github.com/light-bringer/commhistory-mms/internal/pkg/callhandle"
)

// Service identities of the engine.
const (
	PushServiceName    = "org.nemomobile.MmsEngine.Push"
	MessageServiceName = "org.nemomobile.MmsEngine"
)

// Full method names.
const (
	ReceiveMessageMethod = "/" + PushServiceName + "/ReceiveMessage"
	SendMessageMethod    = "/" + MessageServiceName + "/SendMessage"
	CancelMessageMethod  = "/" + MessageServiceName + "/CancelMessage"
	RetrySendMethod      = "/" + MessageServiceName + "/RetrySend"
)

// Request field names.
const (
	FieldEventID            = "event_id"
	FieldSubscriberIdentity = "subscriber_identity"
	FieldIsPush             = "is_push"
	FieldPushData           = "push_data"
	FieldTo                 = "to"
	FieldCc                 = "cc"
	FieldBcc                = "bcc"
	FieldSubject            = "subject"
	FieldParts              = "parts"
)

// Client implements contracts.Transport over a gRPC connection.
type Client struct {
	conn   grpc.ClientConnInterface
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ contracts.Transport = (*Client)(nil)

// NewClient creates a Client. It does not take ownership of conn.
func NewClient(conn grpc.ClientConnInterface, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		conn:   conn,
		logger: logger.Named("engine"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// NotifyReceive implements contracts.Transport.
func (c *Client) NotifyReceive(ctx context.Context, eventID int64, subscriberIdentity string, isPush bool, pushData []byte) *callhandle.Handle {
	return c.invoke(ctx, ReceiveMessageMethod, &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldEventID:            eventIDValue(eventID),
		FieldSubscriberIdentity: structpb.NewStringValue(subscriberIdentity),
		FieldIsPush:             structpb.NewBoolValue(isPush),
		FieldPushData:           structpb.NewStringValue(base64.StdEncoding.EncodeToString(pushData)),
	}})
}

// NotifyCancel implements contracts.Transport.
func (c *Client) NotifyCancel(ctx context.Context, eventID int64) *callhandle.Handle {
	return c.invoke(ctx, CancelMessageMethod, &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldEventID: eventIDValue(eventID),
	}})
}

// NotifySend implements contracts.Transport.
func (c *Client) NotifySend(ctx context.Context, req *contracts.SendRequest) *callhandle.Handle {
	return c.invoke(ctx, SendMessageMethod, SendPayload(req))
}

// NotifyRetry implements contracts.Transport.
func (c *Client) NotifyRetry(ctx context.Context, eventID int64) *callhandle.Handle {
	return c.invoke(ctx, RetrySendMethod, &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldEventID: eventIDValue(eventID),
	}})
}

// Close abandons every outstanding call. Their handles complete with a
// Canceled error, which releases whatever they own. Close waits for that.
func (c *Client) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *Client) invoke(ctx context.Context, method string, req *structpb.Struct) *callhandle.Handle {
	handle := callhandle.New()

	// The call outlives the caller: keep its values (trace context) but not its deadline.
	callCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(c.ctx, cancel)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		defer stop()

		reply := &structpb.Struct{}
		err := c.conn.Invoke(callCtx, method, req, reply, grpc.WaitForReady(true))
		if err != nil {
			if status.Code(err) == codes.Canceled {
				c.logger.Debug("engine call abandoned", zap.String("method", method))
			} else {
				c.logger.Warn("engine call failed", zap.String("method", method), zap.Error(err))
			}
		}
		handle.Complete(err)
	}()

	return handle
}

// SendPayload builds the SendMessage request body. Parts are sent as an ordered
// list of [file_name, content_type, content_id] triples. The subscriber
// identity is left out entirely when the request does not name one.
func SendPayload(req *contracts.SendRequest) *structpb.Struct {
	parts := make([]*structpb.Value, 0, len(req.Parts))
	for _, p := range req.Parts {
		parts = append(parts, structpb.NewListValue(&structpb.ListValue{Values: []*structpb.Value{
			structpb.NewStringValue(p.FileName),
			structpb.NewStringValue(p.ContentType),
			structpb.NewStringValue(p.ContentID),
		}}))
	}

	fields := map[string]*structpb.Value{
		FieldTo:      stringList(req.To),
		FieldCc:      stringList(req.Cc),
		FieldBcc:     stringList(req.Bcc),
		FieldSubject: structpb.NewStringValue(req.Subject),
		FieldParts:   structpb.NewListValue(&structpb.ListValue{Values: parts}),
	}
	if req.SubscriberIdentity != nil {
		fields[FieldSubscriberIdentity] = structpb.NewStringValue(*req.SubscriberIdentity)
	}
	return &structpb.Struct{Fields: fields}
}

// Event ids travel as decimal strings; a JSON number cannot hold every int64.
func eventIDValue(eventID int64) *structpb.Value {
	return structpb.NewStringValue(strconv.FormatInt(eventID, 10))
}

func stringList(values []string) *structpb.Value {
	items := make([]*structpb.Value, 0, len(values))
	for _, v := range values {
		items = append(items, structpb.NewStringValue(v))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: items})
}
