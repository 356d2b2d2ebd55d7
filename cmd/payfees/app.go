package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/payfees/internal/api"
	"github.com/mmynk/payfees/internal/apiclient"
	"github.com/mmynk/payfees/internal/config"
	"github.com/mmynk/payfees/internal/flow"
	"github.com/mmynk/payfees/internal/rpc"
	"github.com/mmynk/payfees/internal/state"
	"github.com/mmynk/payfees/pkg/logging"
)

// app holds the clients shared by every subcommand.
type app struct {
	baseURL     string
	jsonOut     bool
	showMetrics bool

	cfg      config.Config
	registry *prometheus.Registry
	api      *api.API
	receipts *rpc.ReceiptClient
}

func (a *app) init() {
	logging.Setup()
	a.cfg = config.Load()
	if a.baseURL == "" {
		a.baseURL = a.cfg.Client.BaseURL
	}

	a.registry = prometheus.NewRegistry()
	client := apiclient.New(apiclient.Options{
		BaseURL:       a.baseURL,
		Timeout:       a.cfg.Client.Timeout,
		RetryAttempts: a.cfg.Client.RetryAttempts,
		RetryDelay:    a.cfg.Client.RetryDelay,
		Metrics:       apiclient.NewMetrics(a.registry),
	})
	a.api = api.New(client, api.Options{
		PaymentTimeout: a.cfg.Client.PaymentTimeout,
		HealthTimeout:  a.cfg.Client.HealthTimeout,
	})
	a.receipts = rpc.NewReceiptClient(http.DefaultClient, a.baseURL)
}

// newFlow starts a fresh payer session.
func (a *app) newFlow() *flow.Flow {
	return flow.New(state.NewStore(), a.api, flow.Options{
		ServiceFeePercent: a.cfg.Payment.ServiceFeePercent,
		Currency:          a.cfg.Payment.CurrencyCode,
		Receipts:          a.receipts,
	})
}

func (a *app) printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// printMetrics dumps counter and histogram totals from the client registry.
func (a *app) printMetrics(w io.Writer) {
	families, err := a.registry.Gather()
	if err != nil {
		fmt.Fprintf(w, "metrics unavailable: %v\n", err)
		return
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := ""
			for _, lp := range m.GetLabel() {
				labels += fmt.Sprintf(" %s=%s", lp.GetName(), lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s%s %v", mf.GetName(), labels, m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				lines = append(lines, fmt.Sprintf("%s%s count=%d sum=%.3fs", mf.GetName(), labels, h.GetSampleCount(), h.GetSampleSum()))
			}
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}
