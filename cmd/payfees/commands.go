package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mmynk/payfees/internal/calculator"
	"github.com/mmynk/payfees/internal/models"
	"github.com/mmynk/payfees/internal/rpc"
)

func healthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is up",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, apiErr := a.api.Health.Check(cmd.Context())
			if apiErr != nil {
				return fmt.Errorf("backend unreachable: %w", apiErr)
			}
			if a.jsonOut {
				return a.printJSON(cmd.OutOrStdout(), status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", a.baseURL, status.Status)
			return nil
		},
	}
}

func searchCmd(a *app) *cobra.Command {
	var phone string
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search students by name or ID",
		Long: `Search the school register.

Examples:
  payfees search nakato
  payfees search "" --phone 256700123456`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			students, apiErr := a.api.Students.Search(cmd.Context(), args[0], phone)
			if apiErr != nil {
				return fmt.Errorf("search failed: %w", apiErr)
			}
			if a.jsonOut {
				return a.printJSON(cmd.OutOrStdout(), students)
			}
			if len(students) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No students found.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tGRADE\tSCHOOL")
			for _, st := range students {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", st.ID, st.Name, st.Grade, st.SchoolName)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "only students registered under this parent phone")
	return cmd
}

func servicesCmd(a *app) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "services",
		Short: "List billable fee items",
		RunE: func(cmd *cobra.Command, args []string) error {
			var services []models.Service
			if category != "" {
				byCategory, apiErr := a.api.Services.ByCategory(cmd.Context(), category)
				if apiErr != nil {
					return fmt.Errorf("failed to list services: %w", apiErr)
				}
				services = byCategory
			} else {
				all, err := a.newFlow().Services(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list services: %w", err)
				}
				services = all
			}
			if a.jsonOut {
				return a.printJSON(cmd.OutOrStdout(), services)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDESCRIPTION\tCATEGORY\tAMOUNT")
			for _, s := range services {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.Description, s.Category,
					calculator.FormatAmount(s.Amount, a.cfg.Payment.CurrencySymbol))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "only services in this category")
	return cmd
}

func payCmd(a *app) *cobra.Command {
	var (
		phone, name, school string
		studentIDs          []string
		serviceIDs          []string
		card                models.Card
		download            bool
	)
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Pay for one or more services for one or more students",
		Long: `Build a cart of services for each student and pay it by card.

Every service is added once per student.

Examples:
  payfees pay --phone 256700123456 --student STU001 --service tuition --service books \
    --card 4242424242424242 --holder "Jane Doe" --expiry 08/29 --cvv 123`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f := a.newFlow()
			f.PreloadServices(ctx)

			if err := f.Identify(phone, name); err != nil {
				return err
			}
			if len(studentIDs) == 0 || len(serviceIDs) == 0 {
				return fmt.Errorf("at least one --student and one --service are required")
			}

			for _, sid := range studentIDs {
				st, apiErr := a.api.Students.Get(ctx, sid)
				if apiErr != nil {
					return fmt.Errorf("student %s: %w", sid, apiErr)
				}
				f.SelectStudent(st)
				for _, svcID := range serviceIDs {
					svc, apiErr := a.api.Services.Get(ctx, svcID)
					if apiErr != nil {
						return fmt.Errorf("service %s: %w", svcID, apiErr)
					}
					f.AddService(st, svc)
				}
			}

			totals, err := f.Checkout()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			sym := a.cfg.Payment.CurrencySymbol
			if !a.jsonOut {
				for _, l := range f.State().Checkout.Services {
					fmt.Fprintf(out, "  %-12s %-28s %s\n", l.StudentID, l.Description, calculator.FormatAmount(l.Amount, sym))
				}
				fmt.Fprintf(out, "Subtotal:    %s\n", calculator.FormatAmount(totals.Subtotal, sym))
				fmt.Fprintf(out, "Service fee: %s\n", calculator.FormatAmount(totals.ServiceFee, sym))
				fmt.Fprintf(out, "Total:       %s\n", calculator.FormatAmount(totals.Final, sym))
			}

			txn, err := f.Pay(ctx, card, school)
			if err != nil {
				return fmt.Errorf("payment failed: %w", err)
			}
			if a.jsonOut && !download {
				return a.printJSON(out, txn)
			}
			if !a.jsonOut {
				fmt.Fprintf(out, "Paid. Transaction %s\n", txn.TransactionID)
			}

			if download {
				receipt, err := f.DownloadReceipt(ctx)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return a.printJSON(out, receipt)
				}
				printReceipt(out, receipt, sym)
			} else if txn.ReceiptToken != "" && !a.jsonOut {
				fmt.Fprintf(out, "Receipt token: %s\n", txn.ReceiptToken)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "payer phone number")
	cmd.Flags().StringVar(&name, "name", "", "payer name")
	cmd.Flags().StringVar(&school, "school", "", "school name")
	cmd.Flags().StringSliceVar(&studentIDs, "student", nil, "student ID (repeatable)")
	cmd.Flags().StringSliceVar(&serviceIDs, "service", nil, "service ID (repeatable)")
	cmd.Flags().StringVar(&card.Number, "card", "", "card number")
	cmd.Flags().StringVar(&card.Holder, "holder", "", "name on card")
	cmd.Flags().StringVar(&card.ExpiryDate, "expiry", "", "card expiry (MM/YY)")
	cmd.Flags().StringVar(&card.CVV, "cvv", "", "card security code")
	cmd.Flags().BoolVar(&download, "receipt", false, "download the receipt after paying")
	cmd.MarkFlagRequired("phone")
	return cmd
}

func historyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history [phone]",
		Short: "List past payments for a phone number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := a.newFlow()
			if err := f.Identify(args[0], ""); err != nil {
				return err
			}
			recs, err := f.History(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}
			if a.jsonOut {
				return a.printJSON(cmd.OutOrStdout(), recs)
			}
			if len(recs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No payments yet.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tSTUDENT\tSERVICES\tTOTAL")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.ID, r.CreatedAt, r.StudentName, len(r.Services),
					calculator.FormatAmount(r.FinalAmount, a.cfg.Payment.CurrencySymbol))
			}
			return tw.Flush()
		},
	}
}

func receiptCmd(a *app) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "receipt [paymentId]",
		Short: "Download a receipt with the token issued at payment time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.receipts.GetReceipt(cmd.Context(), token, args[0])
			if err != nil {
				return fmt.Errorf("failed to fetch receipt: %w", err)
			}
			if a.jsonOut {
				return a.printJSON(cmd.OutOrStdout(), resp)
			}
			printReceipt(cmd.OutOrStdout(), resp, a.cfg.Payment.CurrencySymbol)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "receipt token")
	cmd.MarkFlagRequired("token")
	return cmd
}

func printReceipt(w io.Writer, resp *rpc.GetReceiptResponse, symbol string) {
	rec := resp.Receipt
	fmt.Fprintf(w, "Receipt %s\n", rec.ID)
	fmt.Fprintf(w, "  School:  %s\n", rec.SchoolName)
	fmt.Fprintf(w, "  Payer:   %s (%s)\n", rec.UserName, rec.UserPhone)
	fmt.Fprintf(w, "  Student: %s\n", rec.StudentName)
	for _, l := range rec.Services {
		fmt.Fprintf(w, "    %s %s  %s\n", l.InvoiceNumber, l.Description, calculator.FormatAmount(l.Amount, symbol))
	}
	if len(resp.Shares) > 1 {
		for _, sh := range resp.Shares {
			fmt.Fprintf(w, "  %s: %s incl. fee %s\n", sh.StudentName,
				calculator.FormatAmount(sh.Total, symbol), calculator.FormatAmount(sh.ServiceFee, symbol))
		}
	}
	fmt.Fprintf(w, "  Total:   %s\n", resp.FormattedTotal)
	fmt.Fprintf(w, "  Status:  %s  %s\n", rec.Status, rec.CreatedAt)
}
