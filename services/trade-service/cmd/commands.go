package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/blockchain"
	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/domain"
	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/infrastructure/wallet"
	"github.com/quangdang46/gu-marketplace/services/trade-service/internal/service"
	apperrors "github.com/quangdang46/gu-marketplace/shared/errors"
	"github.com/quangdang46/gu-marketplace/shared/recovery"
	"github.com/quangdang46/gu-marketplace/shared/timeout"
)

// fail prints the error modal and exits non-zero.
func fail(err error) error {
	title, msg := apperrors.Present(err)
	return cli.Exit(fmt.Sprintf("%s: %s", title, msg), 1)
}

// report prints an outcome; failed outcomes exit non-zero.
func report(o service.Outcome) error {
	if !o.Succeeded() {
		return cli.Exit(fmt.Sprintf("%s: %s", o.Title, o.Message), 1)
	}
	fmt.Printf("%s: %s\n", o.Title, o.Message)
	return nil
}

func (a *app) connect(ctx context.Context) (domain.WalletSession, error) {
	var session domain.WalletSession
	err := timeout.Run(ctx, "connect", a.timeouts.Wallet, func(ctx context.Context) error {
		var err error
		session, err = a.session.Connect(ctx)
		return err
	})
	return session, err
}

func connectAction(c *cli.Context, a *app) error {
	ctx := c.Context
	session, err := a.connect(ctx)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Address: %s\nNetwork: %s\n", session.Address, session.NetworkLabel)

	netStatus, err := a.session.CheckNetwork(ctx)
	if err != nil {
		return fail(err)
	}
	if netStatus == domain.WrongChain {
		if !c.Bool("switch") {
			return cli.Exit("Wrong Network: run with --switch to move your wallet to "+a.registry.Chain.ChainName+".", 1)
		}
		if err := a.session.SwitchNetwork(ctx); err != nil {
			var manual *wallet.ManualSetupError
			if errors.As(err, &manual) {
				fmt.Print(manual.Instructions())
			}
			return fail(err)
		}
		fmt.Printf("Switched to %s\n", a.session.Snapshot().NetworkLabel)
		a.session.RefreshBalances(ctx)
	}
	printBalances(a.session.Snapshot())
	return nil
}

func balancesAction(c *cli.Context, a *app) error {
	session, err := a.connect(c.Context)
	if err != nil {
		return fail(err)
	}
	printBalances(session)
	return nil
}

func printBalances(s domain.WalletSession) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOKEN\tBALANCE\tUSD\t")
	for _, c := range domain.Currencies {
		b, ok := s.TokenBalances[c]
		if !ok {
			continue
		}
		note := ""
		if b.Err != "" {
			note = "(unavailable)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c, b.Formatted.String(), b.USDValue.StringFixed(2), note)
	}
	_ = w.Flush()
}

func requireCard(c *cli.Context) (string, string, error) {
	contract, card := c.String("contract"), c.String("card")
	if contract == "" || card == "" {
		return "", "", cli.Exit("--contract and --card are required", 2)
	}
	return contract, card, nil
}

func (a *app) loadListings(ctx context.Context, contract, card string) (*service.ListingsClient, error) {
	listings := service.NewListingsClient(a.backend, a.logger)
	err := timeout.Run(ctx, "listings", a.timeouts.Backend, func(ctx context.Context) error {
		_, _, err := listings.GetListingsForCard(ctx, contract, card)
		return err
	})
	return listings, err
}

func listingsAction(c *cli.Context, a *app) error {
	contract, card, err := requireCard(c)
	if err != nil {
		return err
	}
	currency, err := domain.ParseCurrency(c.String("currency"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	listings, err := a.loadListings(c.Context, contract, card)
	if err != nil {
		return fail(err)
	}

	rows := listings.Filter(currency)
	if len(rows) == 0 {
		fmt.Println("No listings.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LISTING\tTOKEN\tPRICE\tCURRENCY\tSELLER\tENDS")
	for _, l := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			l.ListingID, l.TokenID, l.DisplayPrice().String(), l.Currency, l.SellerAddress, l.EndAt.Format(time.RFC3339))
	}
	_ = w.Flush()
	if cheapest := listings.Cheapest(); cheapest != nil {
		fmt.Printf("Cheapest: %s %s (listing %s)\n", cheapest.DisplayPrice().String(), cheapest.Currency, cheapest.ListingID)
	}
	return nil
}

func buyAction(c *cli.Context, a *app) error {
	ctx, cancel := timeout.WithTimeout(c.Context, a.timeouts.Trade)
	defer cancel()

	if _, err := a.connect(ctx); err != nil {
		return fail(err)
	}

	if ids := c.StringSlice("order-id"); len(ids) > 0 {
		out := service.NewPurchaseOrchestrator(a.deps(), nil).Buy(ctx, ids)
		return reportPurchase(out)
	}

	contract, card, err := requireCard(c)
	if err != nil {
		return err
	}
	listings, err := a.loadListings(ctx, contract, card)
	if err != nil {
		return fail(err)
	}
	out := service.NewPurchaseOrchestrator(a.deps(), listings).BuyNow(ctx)
	return reportPurchase(out)
}

func reportPurchase(out service.PurchaseOutcome) error {
	if out.Succeeded() && out.TotalWithFee != "" {
		fmt.Printf("Paid %s (price %s, fee %s)\n", out.TotalWithFee, out.Price, out.Fee)
	}
	return report(out.Outcome)
}

func cancelAction(c *cli.Context, a *app) error {
	ctx, cancel := timeout.WithTimeout(c.Context, a.timeouts.Trade)
	defer cancel()

	if _, err := a.connect(ctx); err != nil {
		return fail(err)
	}
	out := service.NewCancellationOrchestrator(a.deps(), nil).Cancel(ctx, c.StringSlice("order-id"))
	for _, f := range out.Result.Failed {
		fmt.Printf("  %s: %s\n", f.Order, f.ReasonCode)
	}
	return report(out.Outcome)
}

func listAction(c *cli.Context, a *app) error {
	contract, card, err := requireCard(c)
	if err != nil {
		return err
	}
	currency, err := domain.ParseCurrency(c.String("currency"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	ctx, cancel := timeout.WithTimeout(c.Context, a.timeouts.Trade)
	defer cancel()

	if _, err := a.connect(ctx); err != nil {
		return fail(err)
	}
	flow := service.NewListingCreationFlow(a.deps(), a.prices)
	if _, err := flow.LoadInventory(ctx, contract, card); err != nil {
		return fail(err)
	}
	fmt.Printf("Unlisted copies: %d\n", len(flow.Unlisted()))

	flow.SetCurrency(currency)
	flow.SetDuration(c.Int("duration"))
	if c.Bool("max") {
		flow.Max()
	} else {
		flow.SetQuantity(c.Int("quantity"))
	}

	switch {
	case c.Bool("lowest"):
		listings, err := a.loadListings(ctx, contract, card)
		if err != nil {
			return fail(err)
		}
		price, err := flow.Lowest(ctx, listings.Listings())
		if err != nil {
			return fail(err)
		}
		fmt.Printf("Lowest price: %s %s\n", price, currency)
	case c.String("price") != "":
		if err := flow.SetPrice(c.String("price")); err != nil {
			return fail(err)
		}
	default:
		return cli.Exit("either --price or --lowest is required", 2)
	}

	fmt.Printf("You receive %s %s per token after %s%% fees\n",
		flow.Earnings().String(), currency, service.TotalFeePercent().String())

	out := flow.Submit(ctx)
	if len(out.ListingIDs) > 0 {
		fmt.Printf("Listings: %s\n", strings.Join(out.ListingIDs, ", "))
	}
	return report(out.Outcome)
}

func orderAction(c *cli.Context, a *app) error {
	var orders []domain.Order
	err := timeout.Run(c.Context, "order", a.timeouts.Backend, func(ctx context.Context) error {
		var err error
		orders, err = service.NewOrderLookup(a.backend).Orders(ctx, c.StringSlice("order-id"), c.Bool("details"))
		return err
	})
	if err != nil {
		return fail(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tPRICE\tFEE\tMARKETPLACE FEE\tTOTAL\tCURRENCY\tSTATUS")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", o.OrderID, o.Price, o.Fee, o.MarketplaceFee, o.Total, o.Currency, o.Status)
	}
	return w.Flush()
}

func txAction(c *cli.Context, a *app) error {
	verifier, err := blockchain.Dial(c.Context, a.registry.Chain.RPCURL, a.registry.Chain.ExplorerURL)
	if err != nil {
		return fail(err)
	}

	var st blockchain.TxStatus
	err = timeout.Run(c.Context, "tx", a.timeouts.Default, func(ctx context.Context) error {
		var err error
		st, err = verifier.Verify(ctx, c.String("hash"), c.String("to"))
		return err
	})
	if err != nil {
		return fail(err)
	}

	fmt.Printf("Transaction %s: %s\n", st.Hash, st.State)
	if st.BlockNumber > 0 {
		fmt.Printf("Block %d, gas used %d\n", st.BlockNumber, st.GasUsed)
	}
	if st.ExplorerURL != "" {
		fmt.Println(st.ExplorerURL)
	}
	if st.Mismatch != "" {
		return cli.Exit(st.Mismatch, 1)
	}
	if st.State == blockchain.TxReverted || st.State == blockchain.TxNotFound {
		return cli.Exit("Transaction Failed: the transaction is "+string(st.State)+".", 1)
	}
	return nil
}

func historyAction(c *cli.Context, a *app) error {
	session, err := a.connect(c.Context)
	if err != nil {
		return fail(err)
	}
	attempts, err := a.status.ListByWallet(c.Context, session.Address)
	if err != nil {
		return fail(err)
	}
	if len(attempts) == 0 {
		fmt.Println("No recent attempts.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ATTEMPT\tKIND\tSTATE\tORDERS\tTXS\tERROR\tUPDATED")
	for _, at := range attempts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", at.ID, at.Kind, at.State,
			strings.Join(at.OrderIDs, ","), strings.Join(at.TxHashes, ","), at.ErrorCode, at.UpdatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func watchAction(c *cli.Context, a *app) error {
	ctx := c.Context
	if _, err := a.connect(ctx); err != nil {
		return fail(err)
	}

	if addr := c.String("metrics-addr"); addr != "" {
		panics := recovery.NewPanicHandler(recovery.WithStackLogging(false))
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.metrics.Handler())
		srv := &http.Server{Addr: addr, Handler: panics.HTTPMiddleware(mux), ReadHeaderTimeout: 5 * time.Second}

		recovery.SafeGoWithContext(ctx, "metrics-server", func(ctx context.Context) {
			a.logger.WithField("addr", addr).Info("serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.WithError(err).Error("metrics server stopped")
			}
		})
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	a.session.OnReload(func(ctx context.Context, s domain.WalletSession) {
		fmt.Printf("Network changed: %s\n", s.NetworkLabel)
	})
	poll := c.Duration("poll")
	if poll <= 0 {
		poll = a.cfg.Polling.Interval
	}
	a.session.Start(ctx, poll)

	fmt.Println("Watching wallet, press Ctrl+C to stop.")
	for {
		select {
		case <-ctx.Done():
			a.session.Wait()
			return nil
		case s := <-a.session.Updates():
			if !s.Connected() {
				fmt.Println("Wallet disconnected.")
				continue
			}
			fmt.Printf("Account %s on %s\n", s.Address, s.NetworkLabel)
			printBalances(s)
		}
	}
}
