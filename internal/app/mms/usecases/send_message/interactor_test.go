package send_message

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/domain"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/materializer"
	"github.com/light-bringer/commhistory-mms/internal/testutil"
)

func setup(t *testing.T) (*Interactor, *testutil.Transport, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "mms-send")
	transport := testutil.NewTransport()
	return NewInteractor(transport, materializer.New(), root, zap.NewNop()), transport, root
}

func workspaces(t *testing.T, root string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	return entries
}

func TestSendMessage_DispatchesMaterializedParts(t *testing.T) {
	interactor, transport, root := setup(t)

	handle, err := interactor.Execute(context.Background(), &Request{
		To:    []string{"+15551234"},
		Parts: []domain.PartSpec{domain.TextPart("1", "", "hello")},
	})
	require.NoError(t, err)
	require.NotNil(t, handle)

	calls := transport.CallsTo(testutil.MethodSend)
	require.Len(t, calls, 1)
	req := calls[0].Send
	assert.Nil(t, req.SubscriberIdentity)
	assert.Equal(t, []string{"+15551234"}, req.To)
	require.Len(t, req.Parts, 1)
	assert.Equal(t, "text/plain;charset=utf-8", req.Parts[0].ContentType)
	assert.Equal(t, "1", req.Parts[0].ContentID)

	// The file stays until the engine answers
	data, err := os.ReadFile(req.Parts[0].FileName)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	require.Len(t, workspaces(t, root), 1)

	handle.Complete(nil)

	assert.Empty(t, workspaces(t, root))
	_, err = os.Stat(req.Parts[0].FileName)
	assert.True(t, os.IsNotExist(err))
}

func TestSendMessage_WorkspaceRemovedOnFailedCompletion(t *testing.T) {
	interactor, _, root := setup(t)

	handle, err := interactor.Execute(context.Background(), &Request{
		To:    []string{"+15551234"},
		Parts: []domain.PartSpec{domain.TextPart("1", "", "hello")},
	})
	require.NoError(t, err)

	handle.Complete(errors.New("engine unavailable"))

	assert.Empty(t, workspaces(t, root))
}

func TestSendMessage_PreservesPartOrderAndFields(t *testing.T) {
	interactor, transport, _ := setup(t)
	image := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(image, []byte{0xff, 0xd8, 0xff, 0xe0}, 0o600))
	imsi := "310150123456789"

	_, err := interactor.Execute(context.Background(), &Request{
		SubscriberIdentity: &imsi,
		To:                 []string{"+1"},
		Cc:                 []string{"+2"},
		Bcc:                []string{"+3"},
		Subject:            "holiday",
		Parts: []domain.PartSpec{
			domain.FilePart("img", "image/jpeg", image),
			domain.TextPart("caption", "", "look"),
		},
	})
	require.NoError(t, err)

	req := transport.CallsTo(testutil.MethodSend)[0].Send
	require.NotNil(t, req.SubscriberIdentity)
	assert.Equal(t, imsi, *req.SubscriberIdentity)
	assert.Equal(t, []string{"+2"}, req.Cc)
	assert.Equal(t, []string{"+3"}, req.Bcc)
	assert.Equal(t, "holiday", req.Subject)
	require.Len(t, req.Parts, 2)
	assert.Equal(t, "img", req.Parts[0].ContentID)
	assert.Equal(t, image, req.Parts[0].FileName)
	assert.Equal(t, "caption", req.Parts[1].ContentID)
}

func TestSendMessage_MaterializationFailureAbortsEverything(t *testing.T) {
	tests := []struct {
		name    string
		parts   []domain.PartSpec
		wantErr error
	}{
		{
			name:    "part without content source",
			parts:   []domain.PartSpec{{ContentID: "1"}},
			wantErr: domain.ErrMissingContentSource,
		},
		{
			name: "second part fails after first was written",
			parts: []domain.PartSpec{
				domain.TextPart("1", "", "hello"),
				domain.TextPart("", "", "orphan"),
			},
			wantErr: domain.ErrMissingContentID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interactor, transport, root := setup(t)

			handle, err := interactor.Execute(context.Background(), &Request{
				To:    []string{"+15551234"},
				Parts: tt.parts,
			})

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, handle)
			assert.Empty(t, transport.Calls())
			assert.Empty(t, workspaces(t, root))
		})
	}
}

func TestSendMessage_WorkspaceUnavailable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	transport := testutil.NewTransport()
	interactor := NewInteractor(transport, materializer.New(), blocker, zap.NewNop())

	_, err := interactor.Execute(context.Background(), &Request{
		To:    []string{"+15551234"},
		Parts: []domain.PartSpec{domain.TextPart("1", "", "hello")},
	})

	assert.ErrorIs(t, err, domain.ErrWorkspaceUnavailable)
	assert.Empty(t, transport.Calls())
}

func TestSendMessage_EngineAnsweringImmediatelyStillCleansUp(t *testing.T) {
	root := filepath.Join(t.TempDir(), "mms-send")
	transport := testutil.NewTransport()
	transport.AutoComplete = true
	interactor := NewInteractor(transport, materializer.New(), root, zap.NewNop())

	handle, err := interactor.Execute(context.Background(), &Request{
		To:    []string{"+15551234"},
		Parts: []domain.PartSpec{domain.TextPart("1", "", "hello")},
	})
	require.NoError(t, err)

	assert.True(t, handle.IsComplete())
	assert.Empty(t, workspaces(t, root))
}
