package kb

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/mock"

	"github.com/aaryan23/cold-email-os/internal/model"
)

type mockDocStore struct {
	mock.Mock
}

func (m *mockDocStore) CreateDocument(ctx context.Context, doc model.KBDocument, chunks []string) (*model.KBDocument, error) {
	args := m.Called(ctx, doc, chunks)
	if fn, ok := args.Get(0).(func(mock.Arguments) (*model.KBDocument, error)); ok {
		return fn(args)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.KBDocument), args.Error(1)
}

func (m *mockDocStore) FindDocument(ctx context.Context, title, sourceType string) (*model.KBDocument, error) {
	args := m.Called(ctx, title, sourceType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.KBDocument), args.Error(1)
}

// echoDoc returns the document it was given with an ID set.
func echoDoc(args mock.Arguments) (*model.KBDocument, error) {
	doc := args.Get(1).(model.KBDocument)
	doc.ID = "doc-" + doc.Title
	return &doc, nil
}

type mockNotionClient struct {
	mock.Mock
}

func (m *mockNotionClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func (m *mockNotionClient) GetBlockChildren(ctx context.Context, blockID string, cursor string) (*notionapi.GetChildrenResponse, error) {
	args := m.Called(ctx, blockID, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.GetChildrenResponse), args.Error(1)
}
