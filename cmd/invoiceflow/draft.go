package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mejba13/invoiceflow/internal/api"
	"github.com/mejba13/invoiceflow/internal/document"
	"github.com/mejba13/invoiceflow/internal/draftstore"
	"github.com/mejba13/invoiceflow/internal/invoice"
	"github.com/mejba13/invoiceflow/internal/render"
)

// now is replaced in tests that depend on the date
var now = time.Now

var draftHeaderFlags = []string{"client", "issue_date", "due_date", "status", "notes", "terms"}

func newDraftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "draft",
		Aliases: []string{"drafts"},
		Short:   "Compose invoices locally before submitting them",
		Long: `Drafts hold an invoice being composed or edited. They are kept in a local
database so items can be added over several commands, then submitted once.`,
	}
	cmd.AddCommand(
		newDraftNewCmd(),
		newDraftEditCmd(),
		newDraftAddItemCmd(),
		newDraftSetItemCmd(),
		newDraftRemoveItemCmd(),
		newDraftSetCmd(),
		newDraftShowCmd(),
		newDraftListCmd(),
		newDraftPreviewCmd(),
		newDraftSubmitCmd(),
		newDraftDiscardCmd(),
	)
	return cmd
}

// withDraft loads the named draft, runs fn and saves the result
func withDraft(cmd *cobra.Command, name string, fn func(d *invoice.Draft) error) error {
	store, err := openDrafts()
	if err != nil {
		return err
	}
	defer store.Close()

	d, err := store.Load(cmd.Context(), name)
	if err != nil {
		return err
	}
	if err := fn(d); err != nil {
		return err
	}
	if err := store.Save(cmd.Context(), name, d); err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), render.Draft(name, d))
	return nil
}

// createDraft stores d under name unless a draft with that name exists
func createDraft(cmd *cobra.Command, name string, d *invoice.Draft) error {
	store, err := openDrafts()
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := store.Load(cmd.Context(), name); err == nil {
		return fmt.Errorf("draft %q already exists; discard it first or pick another name", name)
	} else if !errors.Is(err, draftstore.ErrNotFound) {
		return err
	}

	if err := store.Save(cmd.Context(), name, d); err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), render.Draft(name, d))
	return nil
}

func itemIndex(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid item number %q: items are numbered from 1", arg)
	}
	return n - 1, nil
}

func newDraftNewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Start a new invoice draft",
		Long:  "Start a draft with one blank item, issued today and due in 30 days. The tax rate is taken from your profile.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, user, err := signedIn(cmd)
			if err != nil {
				return err
			}

			d := invoice.NewDraft(user.TaxRate, now())
			for _, name := range draftHeaderFlags {
				if cmd.Flags().Changed(name) {
					v, _ := cmd.Flags().GetString(name)
					if err := d.SetField(name, v); err != nil {
						return err
					}
				}
			}
			return createDraft(cmd, args[0], d)
		},
	}
	for _, name := range draftHeaderFlags {
		cmd.Flags().String(name, "", "Draft "+name)
	}
	return cmd
}

func newDraftEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <name> <invoice-id>",
		Short: "Start a draft that edits an existing invoice",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, user, err := signedIn(cmd)
			if err != nil {
				return err
			}

			inv, err := a.client.GetInvoice(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			return createDraft(cmd, args[0], invoice.FromInvoice(inv, user.TaxRate))
		},
	}
}

func newDraftAddItemCmd() *cobra.Command {
	var description, quantity, unitPrice string

	cmd := &cobra.Command{
		Use:   "add-item <name>",
		Short: "Append an item to a draft",
		Long:  "Append an item with quantity 1 and price 0, then apply any of --description, --quantity and --unit-price.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := []struct {
				field invoice.Field
				value string
				set   bool
			}{
				{invoice.FieldDescription, description, cmd.Flags().Changed("description")},
				{invoice.FieldQuantity, quantity, cmd.Flags().Changed("quantity")},
				{invoice.FieldUnitPrice, unitPrice, cmd.Flags().Changed("unit-price")},
			}
			for _, v := range values {
				if v.set {
					if err := invoice.CheckItemValue(v.field, v.value); err != nil {
						return err
					}
				}
			}

			return withDraft(cmd, args[0], func(d *invoice.Draft) error {
				d.AddItem()
				last := len(d.Items) - 1
				for _, v := range values {
					if v.set {
						if err := d.UpdateItem(last, v.field, v.value); err != nil {
							return err
						}
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Item description")
	cmd.Flags().StringVar(&quantity, "quantity", "", "Quantity")
	cmd.Flags().StringVar(&unitPrice, "unit-price", "", "Unit price")
	return cmd
}

func newDraftSetItemCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "set-item <name> <item> <description|quantity|unit_price> <value>",
		Short:     "Change one field of a draft item",
		Args:      cobra.ExactArgs(4),
		ValidArgs: []string{string(invoice.FieldDescription), string(invoice.FieldQuantity), string(invoice.FieldUnitPrice)},
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := itemIndex(args[1])
			if err != nil {
				return err
			}
			field := invoice.Field(args[2])
			switch field {
			case invoice.FieldDescription, invoice.FieldQuantity, invoice.FieldUnitPrice:
			default:
				return fmt.Errorf("unknown item field %q (expected description, quantity or unit_price)", args[2])
			}
			if err := invoice.CheckItemValue(field, args[3]); err != nil {
				return err
			}

			return withDraft(cmd, args[0], func(d *invoice.Draft) error {
				return d.UpdateItem(index, field, args[3])
			})
		},
	}
}

func newDraftRemoveItemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-item <name> <item>",
		Short: "Remove an item from a draft",
		Long:  "Remove an item from a draft. The last remaining item cannot be removed.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := itemIndex(args[1])
			if err != nil {
				return err
			}
			return withDraft(cmd, args[0], func(d *invoice.Draft) error {
				return d.RemoveItem(index)
			})
		},
	}
}

func newDraftSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "set <name> <field> <value>",
		Short:     "Set a draft header field",
		Long:      "Set one of client, issue_date, due_date, status, notes or terms.",
		Args:      cobra.ExactArgs(3),
		ValidArgs: draftHeaderFlags,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDraft(cmd, args[0], func(d *invoice.Draft) error {
				return d.SetField(args[1], args[2])
			})
		},
	}
}

func newDraftShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a draft with its totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openDrafts()
			if err != nil {
				return err
			}
			defer store.Close()

			d, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), render.Draft(args[0], d))
			return nil
		},
	}
}

func newDraftListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openDrafts()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No drafts")
				return nil
			}

			rows := make([][]string, len(entries))
			for i, e := range entries {
				kind := "new"
				if e.Draft.InvoiceID != "" {
					kind = "edit"
				}
				rows[i] = []string{
					e.Name,
					kind,
					e.Draft.Client,
					strconv.Itoa(len(e.Draft.Items)),
					render.Money(e.Draft.Totals().Total),
					e.UpdatedAt.Local().Format("2006-01-02 15:04"),
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Table([]string{"Name", "Kind", "Client", "Items", "Total", "Updated"}, rows, 3, 4))
			return nil
		},
	}
}

func newDraftPreviewCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "preview <name>",
		Short: "Render a draft to a local PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, user, err := signedIn(cmd)
			if err != nil {
				return err
			}

			store, err := openDrafts()
			if err != nil {
				return err
			}
			defer store.Close()

			d, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			parties := document.Parties{Issuer: user}
			if d.Client != "" {
				if c, err := a.client.GetClient(cmd.Context(), d.Client); err == nil {
					parties.Client = c
				}
			}

			if output == "" {
				output = args[0] + "-preview.pdf"
			}
			f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			if err := document.RenderDraft(f, d, parties); err != nil {
				_ = f.Close()
				return fmt.Errorf("failed to render preview: %w", err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Preview written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default <name>-preview.pdf)")
	return cmd
}

func newDraftSubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <name>",
		Short: "Create or update the invoice from a draft",
		Long:  "Validate the draft and send it to the server. A draft made with 'draft edit' updates its invoice; others create a new one. The draft is removed once the server accepts it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := signedIn(cmd)
			if err != nil {
				return err
			}

			store, err := openDrafts()
			if err != nil {
				return err
			}
			defer store.Close()

			d, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := d.Validate(); err != nil {
				return err
			}

			var inv *api.Invoice
			if d.InvoiceID != "" {
				inv, err = a.client.UpdateInvoice(cmd.Context(), d.InvoiceID, d.Input())
			} else {
				inv, err = a.client.CreateInvoice(cmd.Context(), d.Input())
			}
			if err != nil {
				return err
			}

			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("invoice %s saved but the draft could not be removed: %w", inv.InvoiceNumber, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), render.Success.Render("Saved invoice "+inv.InvoiceNumber))
			fmt.Fprint(cmd.OutOrStdout(), render.Invoice(inv))
			return nil
		},
	}
}

func newDraftDiscardCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "discard <name>",
		Short: "Delete a draft without submitting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := confirm(cmd, yes, fmt.Sprintf("Discard draft %s?", args[0]))
			if err != nil || !ok {
				return err
			}

			store, err := openDrafts()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Draft discarded")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
