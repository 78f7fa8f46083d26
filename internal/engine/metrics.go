package engine

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kvprobe/kvprobe/internal/compress"
)

var (
	metricBlocksDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kvprobe",
		Subsystem: "engine",
		Name:      "blocks_decoded_total",
		Help:      "Table blocks decoded from disk, by compressor ID.",
	}, []string{"compressor"})

	metricMemtableFlushes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kvprobe",
		Subsystem: "engine",
		Name:      "memtable_flushes_total",
		Help:      "Memtables flushed to table files.",
	})

	metricCompactions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kvprobe",
		Subsystem: "engine",
		Name:      "compactions_total",
		Help:      "Full-range compactions completed.",
	})
)

func compressorLabel(id compress.CompressorID) string {
	return strconv.Itoa(int(id))
}
