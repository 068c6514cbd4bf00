package bridge

import (
	"context"

	"github.com/pkg/errors"

	"github.com/go-gotop/ibkit/gateway"
	"github.com/go-gotop/ibkit/model"
)

// AllTags accountSummary 的全部标签
const AllTags = "AccountType,NetLiquidation,TotalCashValue,SettledCash,AccruedCash,BuyingPower," +
	"EquityWithLoanValue,PreviousEquityWithLoanValue,GrossPositionValue,RegTEquity,RegTMargin,SMA," +
	"InitMarginReq,MaintMarginReq,AvailableFunds,ExcessLiquidity,Cushion,FullInitMarginReq," +
	"FullMaintMarginReq,FullAvailableFunds,FullExcessLiquidity,LookAheadNextChange," +
	"LookAheadInitMarginReq,LookAheadMaintMarginReq,LookAheadAvailableFunds,LookAheadExcessLiquidity," +
	"HighestSeverity,DayTradesRemaining,Leverage"

// GroupAll 全部账户
const GroupAll = "All"

// rowsOf 取出某一类型的行, 同时接受值和指针
func rowsOf[T any](rows []any) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		switch v := r.(type) {
		case T:
			out = append(out, v)
		case *T:
			if v != nil {
				out = append(out, *v)
			}
		}
	}
	return out
}

// GetNextID 请求下一个有效的订单ID
func (s *Session) GetNextID(ctx context.Context) (int64, error) {
	return s.NextRequestID(ctx)
}

// GetAccountSummary 账户摘要, group 为空时取全部账户, tags 为空时取全部标签
func (s *Session) GetAccountSummary(ctx context.Context, group, tags string, opts ...CallOption) ([]model.AccountSummary, error) {
	if group == "" {
		group = GroupAll
	}
	if tags == "" {
		tags = AllTags
	}
	rows, err := s.Call(ctx, gateway.KindAccountSummary, gateway.AccountSummaryRequest{Group: group, Tags: tags}, opts...)
	if err != nil {
		return nil, err
	}
	return rowsOf[model.AccountSummary](rows), nil
}

// AccountUpdates 一次账户更新订阅的快照
type AccountUpdates struct {
	Account   string
	Values    []model.AccountValue
	Portfolio []model.PortfolioItem
}

// StreamAccountUpdates 订阅账户更新直到首次下载结束, 随后自动退订.
// account 为空时使用 ManagedAccounts 中的第一个账户.
func (s *Session) StreamAccountUpdates(ctx context.Context, account string, opts ...CallOption) (*AccountUpdates, error) {
	if account == "" {
		accounts, err := s.ManagedAccounts(ctx)
		if err != nil {
			return nil, err
		}
		if len(accounts) == 0 {
			return nil, errors.New("no managed accounts")
		}
		account = accounts[0]
	}
	rows, err := s.Call(ctx, gateway.KindAccountUpdates, gateway.AccountUpdatesRequest{Subscribe: true, Account: account}, opts...)
	if err != nil {
		return nil, err
	}
	return &AccountUpdates{
		Account:   account,
		Values:    rowsOf[model.AccountValue](rows),
		Portfolio: rowsOf[model.PortfolioItem](rows),
	}, nil
}

// OpenOrders 挂单和最新的订单状态
type OpenOrders struct {
	Orders   []model.OpenOrder
	Statuses []model.OrderStatus
}

// ListOpenOrders 列出所有客户端的挂单
func (s *Session) ListOpenOrders(ctx context.Context, opts ...CallOption) (*OpenOrders, error) {
	rows, err := s.Call(ctx, gateway.KindOpenOrders, gateway.OpenOrdersRequest{All: true}, opts...)
	if err != nil {
		return nil, err
	}
	return &OpenOrders{
		Orders:   rowsOf[model.OpenOrder](rows),
		Statuses: rowsOf[model.OrderStatus](rows),
	}, nil
}

// Executions 成交明细和佣金报告
type Executions struct {
	Executions  []model.Execution
	Commissions []model.CommissionReport
}

// Fills 按 execId 合并成交和佣金
func (e *Executions) Fills() []model.Fill {
	return model.MatchFills(e.Executions, e.Commissions)
}

// ListExecutions 按过滤条件查询成交, 佣金报告不携带请求ID, 需要配合 WithGracePeriod 收集
func (s *Session) ListExecutions(ctx context.Context, filter gateway.ExecutionsRequest, opts ...CallOption) (*Executions, error) {
	rows, err := s.Call(ctx, gateway.KindExecutions, filter, opts...)
	if err != nil {
		return nil, err
	}
	return &Executions{
		Executions:  rowsOf[model.Execution](rows),
		Commissions: rowsOf[model.CommissionReport](rows),
	}, nil
}

// GetHistoricalBars 历史K线, 行按网关投递顺序返回
func (s *Session) GetHistoricalBars(ctx context.Context, req gateway.HistoricalBarsRequest, opts ...CallOption) ([]model.Bar, error) {
	rows, err := s.Call(ctx, gateway.KindHistoricalBars, req, opts...)
	if err != nil {
		return nil, errors.WithMessagef(err, "historical bars %s", req)
	}
	return rowsOf[model.Bar](rows), nil
}

// GlobalCancel 撤销全部挂单, 以随后的 nextValidId 作为网关已处理的确认
func (s *Session) GlobalCancel(ctx context.Context) error {
	if err := s.AwaitReady(ctx); err != nil {
		return err
	}
	if err := s.opts.limiter.Wait(ctx); err != nil {
		return waitError(ctx, gateway.ErrRequestTimeout, "global cancel pacing")
	}
	if err := s.client.Send(gateway.KindGlobalCancel, gateway.NoRequestID, nil); err != nil {
		return errors.Wrap(err, "global cancel")
	}
	s.opts.logger.Infof("session %s global cancel sent", s.id)
	if _, err := s.NextRequestID(ctx); err != nil {
		return errors.WithMessage(err, "global cancel confirmation")
	}
	return nil
}
