package exec

import "github.com/gogpu/rendergraph/types"

// StatisticsSink receives geometry-pipeline query begin/end brackets
// around each pass when statistics are enabled (§4.7 "Pass execution").
// Host applications inject their own implementation (§6 "Host runtime
// services").
type StatisticsSink interface {
	BeginPass(queue types.QueueKind, passName string)
	EndPass(queue types.QueueKind, passName string)
}

// NoopStatisticsSink discards every call. It is the default sink so the
// executor never has to nil-check.
type NoopStatisticsSink struct{}

func (NoopStatisticsSink) BeginPass(types.QueueKind, string) {}
func (NoopStatisticsSink) EndPass(types.QueueKind, string)   {}
