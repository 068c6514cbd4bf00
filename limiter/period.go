package limiter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/time/rate"
)

// ParsePeriod 解析 period 字符串, 返回时间单位和数量
func ParsePeriod(period string) (time.Duration, int, error) {
	var unit time.Duration

	// 去除字符串中的空格
	period = strings.TrimSpace(period)

	var numStr, unitStr string
	for i, char := range period {
		if char >= '0' && char <= '9' {
			numStr += string(char)
		} else {
			unitStr = period[i:]
			break
		}
	}
	num, err := strconv.Atoi(numStr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid period %q: %w", period, err)
	}
	switch strings.ToLower(unitStr) {
	case "ms":
		unit = time.Millisecond
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	default:
		return 0, 0, fmt.Errorf("unsupported time unit: %s", unitStr)
	}
	return unit, num, nil
}

// SetAllLimiters 每个周期窗口一个令牌桶, 突发量等于窗口内的次数
func SetAllLimiters(periodLimitArray []PeriodLimit) []*rate.Limiter {
	limiterGroup := make([]*rate.Limiter, 0, len(periodLimitArray))
	for _, pl := range periodLimitArray {
		if pl.Period == "" || pl.Times <= 0 {
			continue
		}
		timeUnit, n, err := ParsePeriod(pl.Period)
		if err != nil {
			log.Errorf("parse period error: %v", err)
			continue
		}
		window := timeUnit * time.Duration(n)
		every := window / time.Duration(pl.Times)
		limiterGroup = append(limiterGroup, rate.NewLimiter(rate.Every(every), int(pl.Times)))
	}
	return limiterGroup
}

// LimiterAllow 所有窗口都放行才放行
func LimiterAllow(l []*rate.Limiter) bool {
	now := time.Now()
	for _, limiter := range l {
		if !limiter.AllowN(now, 1) {
			return false
		}
	}
	return true
}
