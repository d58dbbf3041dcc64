package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector 知识库与生成流水线指标收集器
type Collector struct {
	documentsIngested prometheus.Counter
	chunksIndexed     prometheus.Counter
	searchesTotal     prometheus.Counter
	generationsTotal  *prometheus.CounterVec
	testCasesKept     prometheus.Counter
	testCasesDropped  prometheus.Counter
	parseOutcomes     *prometheus.CounterVec
}

// NewCollector 创建并注册指标收集器
func NewCollector() *Collector {
	return &Collector{
		documentsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "qaagent_documents_ingested_total",
			Help: "Number of documents processed into the knowledge base",
		}),
		chunksIndexed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "qaagent_chunks_indexed_total",
			Help: "Number of chunks upserted into the vector index",
		}),
		searchesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "qaagent_similarity_searches_total",
			Help: "Number of similarity searches executed",
		}),
		generationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "qaagent_generations_total",
			Help: "Number of generation requests by kind and outcome",
		}, []string{"kind", "outcome"}), // kind: test_cases, script
		testCasesKept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "qaagent_test_cases_validated_total",
			Help: "Number of test cases that survived grounding validation",
		}),
		testCasesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "qaagent_test_cases_dropped_total",
			Help: "Number of test cases dropped during validation",
		}),
		parseOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "qaagent_generation_parse_total",
			Help: "Parse outcomes of generation output",
		}, []string{"mode"}), // mode: strict, recovered, failed
	}
}

func (c *Collector) DocumentsIngested(n int) {
	c.documentsIngested.Add(float64(n))
}

func (c *Collector) ChunksIndexed(n int) {
	c.chunksIndexed.Add(float64(n))
}

func (c *Collector) SearchExecuted() {
	c.searchesTotal.Inc()
}

func (c *Collector) GenerationFinished(kind, outcome string) {
	c.generationsTotal.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) TestCasesValidated(kept, dropped int) {
	c.testCasesKept.Add(float64(kept))
	c.testCasesDropped.Add(float64(dropped))
}

func (c *Collector) ParseOutcome(mode string) {
	c.parseOutcomes.WithLabelValues(mode).Inc()
}
