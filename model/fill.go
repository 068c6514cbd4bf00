package model

import "sort"

// Fill 按 execId 合并后的成交与佣金
type Fill struct {
	ExecID     string
	Execution  Execution
	Commission CommissionReport
}

// MatchFills 以 execId 合并成交明细和佣金报告, 结果按 execId 排序.
// 缺失的一方以零值填充.
func MatchFills(executions []Execution, reports []CommissionReport) []Fill {
	execs := make(map[string]Execution, len(executions))
	for _, e := range executions {
		execs[e.ExecID] = e
	}
	comms := make(map[string]CommissionReport, len(reports))
	for _, c := range reports {
		comms[c.ExecID] = c
	}

	ids := make([]string, 0, len(execs)+len(comms))
	for id := range execs {
		ids = append(ids, id)
	}
	for id := range comms {
		if _, ok := execs[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	fills := make([]Fill, 0, len(ids))
	for _, id := range ids {
		fills = append(fills, Fill{
			ExecID:     id,
			Execution:  execs[id],
			Commission: comms[id],
		})
	}
	return fills
}

// Complete 成交和佣金都已到达
func (f Fill) Complete() bool {
	return f.Execution.ExecID != "" && f.Commission.ExecID != ""
}
