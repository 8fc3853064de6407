package contract

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"contract-lifecycle/pkg/errutil"

	"github.com/stretchr/testify/require"
)

type documentStorageMock struct {
	putFn    func(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	removeFn func(ctx context.Context, objectPath string) error
	removed  []string
}

func (m *documentStorageMock) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	return m.putFn(ctx, key, r, size, contentType)
}

func (m *documentStorageMock) Remove(ctx context.Context, objectPath string) error {
	m.removed = append(m.removed, objectPath)
	if m.removeFn != nil {
		return m.removeFn(ctx, objectPath)
	}
	return nil
}

func TestAttachDocument(t *testing.T) {
	var gotKey, gotBody string
	storage := &documentStorageMock{putFn: func(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
		b, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		gotKey, gotBody = key, string(b)
		return "contracts/" + key, nil
	}}
	f := newFixture(t, func(p *ServiceParams) { p.Documents = storage })
	c := f.create(t)

	body := "%PDF-1.7 signed"
	got, err := f.svc.AttachDocument(f.ctx, c.ID, AttachDocumentRequest{
		FileName:    `C:\scans\agreement.pdf`,
		ContentType: "application/pdf",
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(gotKey, testTenant+"/"+c.ID+"/"), gotKey)
	require.True(t, strings.HasSuffix(gotKey, "-agreement.pdf"), gotKey)
	require.Equal(t, body, gotBody)
	require.Equal(t, "contracts/"+gotKey, got.DocumentPath)
	require.Equal(t, "agreement.pdf", got.DocumentFileName)
	require.Equal(t, "application/pdf", got.DocumentContentType)
	require.NotNil(t, got.DocumentSize)
	require.EqualValues(t, len(body), *got.DocumentSize)
	require.Equal(t, c.Version+1, got.Version)
	require.Empty(t, storage.removed)
}

func TestAttachDocumentReplacesPreviousObject(t *testing.T) {
	storage := &documentStorageMock{putFn: func(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
		return "contracts/" + key, nil
	}}
	f := newFixture(t, func(p *ServiceParams) { p.Documents = storage })
	c := f.create(t)

	upload := func() *Contract {
		got, err := f.svc.AttachDocument(f.ctx, c.ID, AttachDocumentRequest{
			FileName: "agreement.pdf", Size: 1, Body: strings.NewReader("x"),
		})
		require.NoError(t, err)
		return got
	}

	first := upload()
	second := upload()
	require.NotEqual(t, first.DocumentPath, second.DocumentPath)
	require.Equal(t, []string{first.DocumentPath}, storage.removed)
}

func TestAttachDocumentRemovesUploadWhenRecordFails(t *testing.T) {
	var f *fixture
	var c *Contract
	storage := &documentStorageMock{}
	storage.putFn = func(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
		// The contract is finalized while the upload is in flight.
		_, err := f.svc.ChangeStatus(f.ctx, c.ID, ChangeStatusRequest{Status: string(StatusCancelled)})
		require.NoError(t, err)
		return "contracts/" + key, nil
	}
	f = newFixture(t, func(p *ServiceParams) { p.Documents = storage })
	c = f.create(t)

	_, err := f.svc.AttachDocument(f.ctx, c.ID, AttachDocumentRequest{
		FileName: "agreement.pdf", Size: 1, Body: strings.NewReader("x"),
	})
	require.True(t, errutil.Is(err, errutil.StatusInvalidState), "got %v", err)
	require.Len(t, storage.removed, 1)
	require.True(t, strings.HasSuffix(storage.removed[0], "-agreement.pdf"))

	got, err := f.svc.Get(f.ctx, c.ID)
	require.NoError(t, err)
	require.Empty(t, got.DocumentPath)
}

func TestAttachDocumentRejections(t *testing.T) {
	calls := 0
	storage := &documentStorageMock{putFn: func(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
		calls++
		return key, nil
	}}
	f := newFixture(t, func(p *ServiceParams) { p.Documents = storage })
	c := f.create(t)

	tests := []struct {
		name string
		req  AttachDocumentRequest
	}{
		{name: "missing file name", req: AttachDocumentRequest{Size: 1, Body: strings.NewReader("x")}},
		{name: "missing body", req: AttachDocumentRequest{FileName: "a.pdf", Size: 1}},
		{name: "empty", req: AttachDocumentRequest{FileName: "a.pdf", Body: strings.NewReader("")}},
		{name: "too large", req: AttachDocumentRequest{FileName: "a.pdf", Size: MaxDocumentSize + 1, Body: strings.NewReader("x")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AttachDocument(f.ctx, c.ID, tt.req)
			require.True(t, errutil.Is(err, errutil.StatusInvalidArgument), "got %v", err)
		})
	}

	finalized := f.moveTo(t, f.create(t), StatusCancelled)
	_, err := f.svc.AttachDocument(f.ctx, finalized.ID, AttachDocumentRequest{
		FileName: "a.pdf", Size: 1, Body: strings.NewReader("x"),
	})
	require.True(t, errutil.Is(err, errutil.StatusInvalidState), "got %v", err)
	require.Zero(t, calls)
}

func TestAttachDocumentStorageFailure(t *testing.T) {
	storage := &documentStorageMock{putFn: func(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
		return "", errors.New("bucket unavailable")
	}}
	f := newFixture(t, func(p *ServiceParams) { p.Documents = storage })
	c := f.create(t)

	_, err := f.svc.AttachDocument(f.ctx, c.ID, AttachDocumentRequest{
		FileName: "a.pdf", Size: 1, Body: strings.NewReader("x"),
	})
	require.True(t, errutil.Is(err, errutil.StatusInfrastructure), "got %v", err)

	got, err := f.svc.Get(f.ctx, c.ID)
	require.NoError(t, err)
	require.Empty(t, got.DocumentPath)
}

func TestAttachDocumentWithoutStorage(t *testing.T) {
	f := newFixture(t)
	c := f.create(t)
	_, err := f.svc.AttachDocument(f.ctx, c.ID, AttachDocumentRequest{
		FileName: "a.pdf", Size: 1, Body: strings.NewReader("x"),
	})
	require.True(t, errutil.Is(err, errutil.StatusNotImplemented))
}
