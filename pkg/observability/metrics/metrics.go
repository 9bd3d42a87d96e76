package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	requestsCreated atomic.Int64
	createFailures  atomic.Int64
	publishFailures atomic.Int64

	sinkMu       sync.Mutex
	sinkOutcomes = map[sinkKey]*atomic.Int64{}
)

type sinkKey struct {
	operation string
	result    string
}

func IncCreated() {
	requestsCreated.Add(1)
}

func IncCreateFailed() {
	createFailures.Add(1)
}

func IncPublishFailed() {
	publishFailures.Add(1)
}

// ObserveSink counts one terminal write outcome.
func ObserveSink(operation, result string) {
	key := sinkKey{operation: operation, result: result}
	sinkMu.Lock()
	counter, ok := sinkOutcomes[key]
	if !ok {
		counter = &atomic.Int64{}
		sinkOutcomes[key] = counter
	}
	sinkMu.Unlock()
	counter.Add(1)
}

// SinkCount returns the current count for one operation/result pair.
func SinkCount(operation, result string) int64 {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	if counter, ok := sinkOutcomes[sinkKey{operation: operation, result: result}]; ok {
		return counter.Load()
	}
	return 0
}

func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		WritePrometheus(w)
	})
}

func WritePrometheus(w io.Writer) {
	fmt.Fprintf(w, "# HELP vk_parser_requests_created_total Number of parser requests persisted.\n")
	fmt.Fprintf(w, "# TYPE vk_parser_requests_created_total counter\n")
	fmt.Fprintf(w, "vk_parser_requests_created_total %d\n", requestsCreated.Load())

	fmt.Fprintf(w, "# HELP vk_parser_requests_create_failed_total Number of parser requests the store could not create.\n")
	fmt.Fprintf(w, "# TYPE vk_parser_requests_create_failed_total counter\n")
	fmt.Fprintf(w, "vk_parser_requests_create_failed_total %d\n", createFailures.Load())

	fmt.Fprintf(w, "# HELP vk_parser_requests_publish_failed_total Number of parser requests that could not be enqueued.\n")
	fmt.Fprintf(w, "# TYPE vk_parser_requests_publish_failed_total counter\n")
	fmt.Fprintf(w, "vk_parser_requests_publish_failed_total %d\n", publishFailures.Load())

	sinkMu.Lock()
	keys := make([]sinkKey, 0, len(sinkOutcomes))
	for key := range sinkOutcomes {
		keys = append(keys, key)
	}
	sinkMu.Unlock()
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].operation != keys[j].operation {
			return keys[i].operation < keys[j].operation
		}
		return keys[i].result < keys[j].result
	})

	fmt.Fprintf(w, "# HELP vk_parser_terminal_writes_total Terminal status writes by operation and outcome.\n")
	fmt.Fprintf(w, "# TYPE vk_parser_terminal_writes_total counter\n")
	for _, key := range keys {
		fmt.Fprintf(w, "vk_parser_terminal_writes_total{operation=%q,result=%q} %d\n",
			key.operation, key.result, SinkCount(key.operation, key.result))
	}
}
