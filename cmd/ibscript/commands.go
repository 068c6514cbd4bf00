package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/go-gotop/ibkit/bridge"
	"github.com/go-gotop/ibkit/gateway"
	"github.com/go-gotop/ibkit/sampler"
	"github.com/go-gotop/ibkit/sampler/bytime"
)

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func runCheckConnection(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("check-connection").Parse(args); err != nil {
		return err
	}
	if err := a.connect(ctx); err != nil {
		return err
	}
	rctx, cancel := a.requestContext(ctx)
	defer cancel()
	accounts, err := a.session.ManagedAccounts(rctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "connected: %t\n", a.session.IsConnected())
	fmt.Fprintf(a.out, "state: %s\n", a.session.State())
	fmt.Fprintf(a.out, "accounts: %v\n", accounts)
	return nil
}

func runNextID(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("next-id").Parse(args); err != nil {
		return err
	}
	if err := a.connect(ctx); err != nil {
		return err
	}
	rctx, cancel := a.requestContext(ctx)
	defer cancel()
	id, err := a.session.GetNextID(rctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "next valid id: %d\n", id)
	return nil
}

func runAccountSummary(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("account-summary")
	group := fs.String("group", bridge.GroupAll, "account group")
	tags := fs.String("tags", bridge.AllTags, "comma separated tags")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.connect(ctx); err != nil {
		return err
	}
	rctx, cancel := a.requestContext(ctx)
	defer cancel()
	rows, err := a.session.GetAccountSummary(rctx, *group, *tags)
	if err != nil {
		return err
	}
	rows = dedupe(rows)
	a.publish(ctx, gateway.KindAccountSummary, len(rows), rows)

	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		table = append(table, []string{r.Account, r.Tag, r.Value, r.Currency})
	}
	return writeTable(a.out, []string{"ACCOUNT", "TAG", "VALUE", "CURRENCY"}, table)
}

func runAccountUpdates(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("account-updates")
	account := fs.String("account", "", "account code, defaults to the first managed account")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *account == "" {
		*account = a.cfg.Gateway.Account
	}
	if err := a.connect(ctx); err != nil {
		return err
	}
	rctx, cancel := a.requestContext(ctx)
	defer cancel()
	updates, err := a.session.StreamAccountUpdates(rctx, *account)
	if err != nil {
		return err
	}
	updates.Values = dedupe(updates.Values)
	updates.Portfolio = dedupe(updates.Portfolio)
	a.publish(ctx, gateway.KindAccountUpdates, len(updates.Values)+len(updates.Portfolio), updates)

	fmt.Fprintf(a.out, "account: %s\n", updates.Account)
	values := make([][]string, 0, len(updates.Values))
	for _, v := range updates.Values {
		values = append(values, []string{v.Key, v.Value, v.Currency})
	}
	if err := writeTable(a.out, []string{"KEY", "VALUE", "CURRENCY"}, values); err != nil {
		return err
	}
	fmt.Fprintln(a.out)
	portfolio := make([][]string, 0, len(updates.Portfolio))
	for _, p := range updates.Portfolio {
		portfolio = append(portfolio, []string{
			p.Contract.Symbol, p.Contract.SecType, p.Position.String(), p.MarketPrice.String(),
			p.MarketValue.String(), p.AverageCost.String(), p.UnrealizedPNL.String(), p.RealizedPNL.String(),
		})
	}
	return writeTable(a.out, []string{"SYMBOL", "SECTYPE", "POSITION", "PRICE", "VALUE", "AVGCOST", "UPNL", "RPNL"}, portfolio)
}

func runOpenOrders(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("open-orders").Parse(args); err != nil {
		return err
	}
	if err := a.connect(ctx); err != nil {
		return err
	}
	rctx, cancel := a.requestContext(ctx)
	defer cancel()
	orders, err := a.session.ListOpenOrders(rctx)
	if err != nil {
		return err
	}
	orders.Orders = dedupe(orders.Orders)
	orders.Statuses = dedupe(orders.Statuses)
	a.publish(ctx, gateway.KindOpenOrders, len(orders.Orders), orders)

	table := make([][]string, 0, len(orders.Orders))
	for _, o := range orders.Orders {
		table = append(table, []string{
			strconv.FormatInt(o.PermID, 10), strconv.FormatInt(o.ClientID, 10), strconv.FormatInt(o.OrderID, 10),
			o.Account, o.Contract.Symbol, o.Action, o.TotalQuantity.String(), o.OrderType, o.LmtPrice.String(), o.Status,
		})
	}
	if err := writeTable(a.out, []string{"PERMID", "CLIENT", "ORDER", "ACCOUNT", "SYMBOL", "ACTION", "QTY", "TYPE", "LMT", "STATUS"}, table); err != nil {
		return err
	}
	if len(orders.Statuses) == 0 {
		return nil
	}
	fmt.Fprintln(a.out)
	statuses := make([][]string, 0, len(orders.Statuses))
	for _, s := range orders.Statuses {
		statuses = append(statuses, []string{
			strconv.FormatInt(s.OrderID, 10), s.Status, s.Filled.String(), s.Remaining.String(), s.AvgFillPrice.String(),
		})
	}
	return writeTable(a.out, []string{"ORDER", "STATUS", "FILLED", "REMAINING", "AVGPRICE"}, statuses)
}

func runExecutions(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("executions")
	var filter gateway.ExecutionsRequest
	fs.Int64Var(&filter.ClientID, "client-id", 0, "filter by client id, 0 for all")
	fs.StringVar(&filter.Account, "account", "", "filter by account")
	fs.StringVar(&filter.Symbol, "symbol", "", "filter by symbol")
	fs.StringVar(&filter.SecType, "sec-type", "", "filter by security type")
	fs.StringVar(&filter.Side, "side", "", "filter by side, BUY or SELL")
	fs.StringVar(&filter.Time, "time", "", "executions after yyyymmdd hh:mm:ss")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.connect(ctx); err != nil {
		return err
	}
	rctx, cancel := a.requestContext(ctx)
	defer cancel()
	execs, err := a.session.ListExecutions(rctx, filter)
	if err != nil {
		return err
	}
	execs.Executions = dedupe(execs.Executions)
	execs.Commissions = dedupe(execs.Commissions)
	fills := execs.Fills()
	a.publish(ctx, gateway.KindExecutions, len(fills), fills)

	table := make([][]string, 0, len(fills))
	for _, f := range fills {
		table = append(table, []string{
			f.ExecID, f.Execution.Time, f.Execution.Account, f.Execution.Contract.Symbol, f.Execution.Side,
			f.Execution.Shares.String(), f.Execution.Price.String(), f.Commission.Commission.String(), f.Commission.Currency,
		})
	}
	return writeTable(a.out, []string{"EXECID", "TIME", "ACCOUNT", "SYMBOL", "SIDE", "SHARES", "PRICE", "COMMISSION", "CURRENCY"}, table)
}

func runHistorical(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("historical")
	req := gateway.HistoricalBarsRequest{FormatDate: 1}
	fs.StringVar(&req.Symbol, "symbol", "", "contract symbol")
	fs.StringVar(&req.SecType, "sec-type", "STK", "security type")
	fs.StringVar(&req.Currency, "currency", "USD", "currency")
	fs.StringVar(&req.Exchange, "exchange", "SMART", "exchange")
	fs.StringVar(&req.PrimaryExchange, "primary-exchange", "", "primary exchange")
	fs.StringVar(&req.EndDateTime, "end", "", "end date time, empty for now")
	fs.StringVar(&req.Duration, "duration", "1 D", "duration string, eg: 1 W")
	fs.StringVar(&req.BarSize, "bar-size", "1 hour", "bar size, eg: 5 mins")
	fs.StringVar(&req.WhatToShow, "what", "TRADES", "what to show")
	fs.BoolVar(&req.UseRTH, "rth", true, "regular trading hours only")
	resample := fs.Duration("resample", 0, "merge bars into windows of this size, eg: 4h")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if req.Symbol == "" {
		return fmt.Errorf("-symbol is required")
	}
	if err := a.connect(ctx); err != nil {
		return err
	}
	rctx, cancel := a.requestContext(ctx)
	defer cancel()
	bars, err := a.session.GetHistoricalBars(rctx, req)
	if err != nil {
		return err
	}
	bars = dedupe(bars)
	if *resample > 0 {
		if bars, err = sampler.Resample(bytime.NewByTime(*resample), bars); err != nil {
			return err
		}
	}
	a.publish(ctx, gateway.KindHistoricalBars, len(bars), bars)

	table := make([][]string, 0, len(bars))
	for _, b := range bars {
		table = append(table, []string{
			b.Date, b.Open.String(), b.High.String(), b.Low.String(), b.Close.String(),
			b.Volume.String(), b.WAP.String(), strconv.FormatInt(b.BarCount, 10),
		})
	}
	return writeTable(a.out, []string{"DATE", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME", "WAP", "COUNT"}, table)
}

func runGlobalCancel(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("global-cancel").Parse(args); err != nil {
		return err
	}
	if err := a.connect(ctx); err != nil {
		return err
	}
	rctx, cancel := a.requestContext(ctx)
	defer cancel()
	if err := a.session.GlobalCancel(rctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "global cancel confirmed")
	return nil
}
