package bytime

import (
	"time"

	"github.com/pkg/errors"

	"github.com/go-gotop/ibkit/model"
	"github.com/go-gotop/ibkit/sampler"
)

// NewByTime 按固定时间窗口合并K线, 窗口以 UTC 零点对齐
func NewByTime(window time.Duration) sampler.Sampler {
	return &byTime{
		ms: window.Milliseconds(),
	}
}

func timestampMod(t int64, m int64) int64 {
	return t % m
}

func toAgg(ts int64, b model.Bar, ms int64) *sampler.AggregatedBar {
	return &sampler.AggregatedBar{
		// 当前K线的时间戳减掉余数
		Timestamp:    ts - timestampMod(ts, ms),
		Count:        1,
		OpenPrice:    sampler.PricePoint{Timestamp: ts, Price: b.Open},
		ClosePrice:   sampler.PricePoint{Timestamp: ts, Price: b.Close},
		HighestPrice: sampler.PricePoint{Timestamp: ts, Price: b.High},
		LowestPrice:  sampler.PricePoint{Timestamp: ts, Price: b.Low},
		Volume:       b.Volume,
		BarCount:     b.BarCount,
		Notional:     b.WAP.Mul(b.Volume),
	}
}

type byTime struct {
	ms    int64
	agg   *sampler.AggregatedBar
	lastT int64
}

func (m *byTime) Sample(b model.Bar) (agg *sampler.AggregatedBar, err error) {
	if m.ms <= 0 {
		return nil, errors.Errorf("invalid window %dms", m.ms)
	}
	t, err := b.Time()
	if err != nil {
		return nil, err
	}
	ts := t.UnixMilli()
	if m.agg != nil && ts < m.lastT {
		return nil, errors.Errorf("bar %s out of order", b.Date)
	}
	m.lastT = ts

	if m.agg == nil {
		m.agg = toAgg(ts, b, m.ms)
		return nil, nil
	}
	if ts >= m.agg.Timestamp+m.ms {
		agg = m.agg
		m.agg = toAgg(ts, b, m.ms)
		return agg, nil
	}
	m.aggregate(ts, b)
	return nil, nil
}

func (m *byTime) Flush() *sampler.AggregatedBar {
	agg := m.agg
	m.agg = nil
	return agg
}

func (m *byTime) aggregate(ts int64, b model.Bar) {
	m.agg.Count++
	m.agg.ClosePrice = sampler.PricePoint{Timestamp: ts, Price: b.Close}
	m.agg.Volume = m.agg.Volume.Add(b.Volume)
	m.agg.BarCount += b.BarCount
	m.agg.Notional = m.agg.Notional.Add(b.WAP.Mul(b.Volume))
	if b.High.GreaterThan(m.agg.HighestPrice.Price) {
		m.agg.HighestPrice = sampler.PricePoint{Timestamp: ts, Price: b.High}
	}
	if b.Low.LessThan(m.agg.LowestPrice.Price) {
		m.agg.LowestPrice = sampler.PricePoint{Timestamp: ts, Price: b.Low}
	}
}
