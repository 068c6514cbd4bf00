package sampler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/go-gotop/ibkit/model"
)

// barDateLayout 重采样后K线的日期格式
const barDateLayout = "20060102 15:04:05"

type PricePoint struct {
	Timestamp int64 // 毫秒
	Price     decimal.Decimal
}

// AggregatedBar 一个时间窗口内合并的K线
type AggregatedBar struct {
	Timestamp    int64 // 窗口起始, 毫秒
	Count        int   // 合并的源K线数
	OpenPrice    PricePoint
	ClosePrice   PricePoint
	HighestPrice PricePoint
	LowestPrice  PricePoint
	Volume       decimal.Decimal
	BarCount     int64
	Notional     decimal.Decimal // sum(wap*volume), 用于计算 WAP
}

// WAP 成交量加权均价, 没有成交量时为收盘价
func (a *AggregatedBar) WAP() decimal.Decimal {
	if a.Volume.IsZero() {
		return a.ClosePrice.Price
	}
	return a.Notional.Div(a.Volume).Round(8)
}

// Bar 转回 model.Bar, 日期为窗口起始的 UTC 时间
func (a *AggregatedBar) Bar() model.Bar {
	return model.Bar{
		Date:     timeOf(a.Timestamp).Format(barDateLayout),
		Open:     a.OpenPrice.Price,
		High:     a.HighestPrice.Price,
		Low:      a.LowestPrice.Price,
		Close:    a.ClosePrice.Price,
		Volume:   a.Volume,
		WAP:      a.WAP(),
		BarCount: a.BarCount,
	}
}

// Sampler 按顺序喂入K线, 窗口结束时返回合并结果
type Sampler interface {
	// Sample 返回上一个已结束的窗口, 窗口未结束时返回 nil
	Sample(b model.Bar) (*AggregatedBar, error)
	// Flush 返回当前未结束的窗口并清空
	Flush() *AggregatedBar
}

// Resample 用 s 合并全部K线
func Resample(s Sampler, bars []model.Bar) ([]model.Bar, error) {
	out := make([]model.Bar, 0, len(bars))
	for _, b := range bars {
		agg, err := s.Sample(b)
		if err != nil {
			return nil, err
		}
		if agg != nil {
			out = append(out, agg.Bar())
		}
	}
	if agg := s.Flush(); agg != nil {
		out = append(out, agg.Bar())
	}
	return out, nil
}

func timeOf(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
