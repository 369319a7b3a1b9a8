package metric

import "strconv"

const (
	TagEnv     = "env"
	TagService = "service"
	TagWorker  = "worker"
	TagBackend = "backend"
)

// TagAsString renders one statsd tag as "key:value".
func TagAsString(key, value string) string {
	return key + ":" + value
}

// WorkerTag tags a metric with the worker ordinal.
func WorkerTag(id int) string {
	return TagAsString(TagWorker, strconv.Itoa(id))
}
