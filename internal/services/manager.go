package services

import (
	"log/slog"
	"time"

	"github.com/aptitude-portal/timing-analytics-service/internal/cache"
	"github.com/aptitude-portal/timing-analytics-service/internal/classifier"
	"github.com/aptitude-portal/timing-analytics-service/internal/events"
	"github.com/aptitude-portal/timing-analytics-service/internal/repositories"
	"github.com/aptitude-portal/timing-analytics-service/internal/validator"
)

// ServiceManager bundles every service behind one constructor so the
// wiring happens in a single place.
type ServiceManager interface {
	Response() ResponseService
	Scoring() ScoringService
	Aggregation() AggregationService
	Analysis() AnalysisService
	Export() ExportService
}

// Dependencies carries everything the services need. Publisher and
// Cache may be nil; the affected services degrade gracefully.
type Dependencies struct {
	Repo           repositories.Repository
	Classifier     *classifier.Classifier
	Validator      *validator.Validator
	Publisher      events.EventPublisher
	Cache          cache.CacheService
	Logger         *slog.Logger
	StorageTimeout time.Duration
	CacheTTL       time.Duration
}

type serviceManager struct {
	response    ResponseService
	scoring     ScoringService
	aggregation AggregationService
	analysis    AnalysisService
	export      ExportService
}

func NewServiceManager(deps Dependencies) ServiceManager {
	scoring := NewScoringService(deps.Repo, deps.Classifier, deps.Logger, deps.StorageTimeout)
	aggregation := NewAggregationService(deps.Repo, deps.Classifier, deps.Logger, deps.StorageTimeout)
	analysis := NewAnalysisService(deps.Repo, deps.Classifier, aggregation, scoring,
		deps.Cache, deps.Logger, deps.StorageTimeout, deps.CacheTTL)

	return &serviceManager{
		response: NewResponseService(deps.Repo, deps.Classifier, deps.Validator,
			deps.Publisher, deps.Cache, deps.Logger, deps.StorageTimeout),
		scoring:     scoring,
		aggregation: aggregation,
		analysis:    analysis,
		export:      NewExportService(analysis),
	}
}

func (m *serviceManager) Response() ResponseService       { return m.response }
func (m *serviceManager) Scoring() ScoringService         { return m.scoring }
func (m *serviceManager) Aggregation() AggregationService { return m.aggregation }
func (m *serviceManager) Analysis() AnalysisService       { return m.analysis }
func (m *serviceManager) Export() ExportService           { return m.export }
