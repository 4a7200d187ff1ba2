package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	RoundTripLatency = metric.NewHistogram("1m1s")
	RoundTrips       = metric.NewCounter("1m1s")
	Retries          = metric.NewCounter("1m1s")
	Failures         = metric.NewCounter("1m1s")
	SamplesSaved     = metric.NewCounter("1m1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("msfetch:RoundTripLatency (ms)", RoundTripLatency)
	expvar.Publish("msfetch:RoundTrips", RoundTrips)
	expvar.Publish("msfetch:Retries", Retries)
	expvar.Publish("msfetch:Failures", Failures)
	expvar.Publish("msfetch:SamplesSaved", SamplesSaved)
}
