package search

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"perito.app/casetrack/internal/entity"
)

const (
	casosIndex     = "casos"
	maxSearchHits  = 1000
	primaryKeyName = "id"
)

// CaseIndex keeps the full-text index of cases in sync with the store.
type CaseIndex interface {
	IndexCase(caso *entity.Case) error
	DeleteCase(id uuid.UUID) error
	Search(query, status string) ([]uuid.UUID, error)
}

type caseDocument struct {
	ID            string `json:"id"`
	NumeroCaso    string `json:"numeroCaso"`
	Titulo        string `json:"titulo"`
	TipoCaso      string `json:"tipoCaso"`
	OrigemDemanda string `json:"origemDemanda"`
	Descricao     string `json:"descricao"`
	Status        string `json:"status"`
	Responsavel   string `json:"responsavel"`
	CreatedAt     int64  `json:"createdAt"`
}

type meiliCaseIndex struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
	log       *zap.Logger
}

func NewCaseIndex(client meilisearch.ServiceManager, log *zap.Logger) CaseIndex {
	if log == nil {
		log = zap.NewNop()
	}
	s := &meiliCaseIndex{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
		log:       log,
	}
	s.initIndex()
	return s
}

func (s *meiliCaseIndex) initIndex() {
	filterable := []any{"status", "responsavel"}
	if _, err := s.client.Index(casosIndex).UpdateFilterableAttributes(&filterable); err != nil {
		s.log.Warn("failed to update casos filterable attributes", zap.Error(err))
	}

	sortable := []string{"createdAt"}
	if _, err := s.client.Index(casosIndex).UpdateSortableAttributes(&sortable); err != nil {
		s.log.Warn("failed to update casos sortable attributes", zap.Error(err))
	}
}

func cleanContentForIndex(sanitizer *bluemonday.Policy, content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</div>", " ")

	clean := html.UnescapeString(sanitizer.Sanitize(content))
	return strings.Join(strings.Fields(clean), " ")
}

func buildCaseDocument(sanitizer *bluemonday.Policy, caso *entity.Case) caseDocument {
	return caseDocument{
		ID:            caso.ID.String(),
		NumeroCaso:    caso.NumeroCaso,
		Titulo:        caso.Titulo,
		TipoCaso:      caso.Contexto.TipoCaso,
		OrigemDemanda: caso.Contexto.OrigemDemanda,
		Descricao:     cleanContentForIndex(sanitizer, caso.Contexto.Descricao),
		Status:        caso.Status,
		Responsavel:   caso.ResponsavelID.String(),
		CreatedAt:     caso.CreatedAt.Unix(),
	}
}

func (s *meiliCaseIndex) IndexCase(caso *entity.Case) error {
	doc := buildCaseDocument(s.sanitizer, caso)
	pk := primaryKeyName
	task, err := s.client.Index(casosIndex).AddDocuments([]caseDocument{doc}, &pk)
	if err != nil {
		return err
	}
	s.log.Debug("indexed caso", zap.String("id", doc.ID), zap.Int64("task", task.TaskUID))
	return nil
}

func (s *meiliCaseIndex) DeleteCase(id uuid.UUID) error {
	_, err := s.client.Index(casosIndex).DeleteDocument(id.String())
	return err
}

func statusFilter(status string) string {
	if status == "" {
		return ""
	}
	return fmt.Sprintf("status = %q", status)
}

func (s *meiliCaseIndex) Search(query, status string) ([]uuid.UUID, error) {
	req := &meilisearch.SearchRequest{
		Limit:                maxSearchHits,
		AttributesToRetrieve: []string{primaryKeyName},
		Sort:                 []string{"createdAt:desc"},
	}
	if filter := statusFilter(status); filter != "" {
		req.Filter = filter
	}

	raw, err := s.client.Index(casosIndex).SearchRaw(query, req)
	if err != nil {
		return nil, err
	}
	return decodeHitIDs(*raw)
}

func decodeHitIDs(raw []byte) ([]uuid.UUID, error) {
	var body struct {
		Hits []struct {
			ID string `json:"id"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(body.Hits))
	for _, hit := range body.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
