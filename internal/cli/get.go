package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
	"github.com/quantdesk/quantjobs/internal/client"
)

const (
	jsonFormat = "json"
	yamlFormat = "yaml"
)

var (
	legalOutputTypes = []string{jsonFormat, yamlFormat}
)

type GetOptions struct {
	GlobalOptions

	Output string
}

func DefaultGetOptions() *GetOptions {
	return &GetOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdGet() *cobra.Command {
	o := DefaultGetOptions()
	cmd := &cobra.Command{
		Use:   "get (TYPE | TYPE/ID)",
		Short: "Display one or many resources.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *GetOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
}

func (o *GetOptions) Complete(cmd *cobra.Command, args []string) error {
	return o.GlobalOptions.Complete(cmd, args)
}

func (o *GetOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}

	kind, _, err := parseAndValidateKindId(args[0])
	if err != nil {
		return err
	}
	if kind != JobKind && kind != ClientKind {
		return fmt.Errorf("unsupported resource kind: %s", kind)
	}

	if len(o.Output) > 0 && !funk.Contains(legalOutputTypes, o.Output) {
		return fmt.Errorf("output format must be one of %s", strings.Join(legalOutputTypes, ", "))
	}

	return nil
}

func (o *GetOptions) Run(ctx context.Context, args []string) error {
	c, err := o.Client()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	kind, id, err := parseAndValidateKindId(args[0])
	if err != nil {
		return err
	}

	errorPrefix := fmt.Sprintf("reading %s/%s", kind, id)
	if id == nil {
		errorPrefix = fmt.Sprintf("listing %s", plural(kind))
	}

	var response any
	switch {
	case kind == JobKind && id != nil:
		response, err = c.GetJob(ctx, *id)
	case kind == JobKind && id == nil:
		response, err = c.ListJobs(ctx, client.ListJobsOptions{})
	case kind == ClientKind && id == nil:
		response, err = c.ListClients(ctx)
	default:
		return fmt.Errorf("unsupported resource kind: %s", kind)
	}
	if err != nil {
		return fmt.Errorf(errorPrefix+": %w", err)
	}

	if len(o.Output) > 0 {
		out, err := marshalOutput(response, o.Output)
		if err != nil {
			return err
		}
		fmt.Printf("%s\n", out)
		return nil
	}
	return printTable(response)
}

func printTable(response any) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 1, '\t', 0)
	switch v := response.(type) {
	case *api.Job:
		printJobsTable(w, *v)
	case []api.Job:
		printJobsTable(w, v...)
	case []api.Client:
		printClientsTable(w, v...)
	default:
		return fmt.Errorf("unknown resource type %T", response)
	}
	w.Flush()
	return nil
}

func printJobsTable(w *tabwriter.Writer, jobs ...api.Job) {
	fmt.Fprintln(w, "ID\tTYPE\tALGO\tPRIORITY\tSTATUS\tDURATION\tAGE")
	for _, j := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			j.ID, j.Type, j.Algo, j.Priority, j.Status, formatDuration(&j), formatAge(j.CreatedAt))
	}
}

func printClientsTable(w *tabwriter.Writer, clients ...api.Client) {
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tAGE")
	for _, c := range clients {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Email, formatAge(c.CreatedAt))
	}
}
