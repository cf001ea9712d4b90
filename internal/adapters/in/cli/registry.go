package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bnema/dockmaster/internal/adapters/out/credstore"
	"github.com/bnema/dockmaster/internal/app"
	"github.com/bnema/dockmaster/internal/domain"
	"github.com/bnema/dockmaster/internal/usecase/registry"
)

// registryServiceFactory opens the credential store named by the configuration.
type registryServiceFactory func(configPath string) (*registry.Service, error)

func defaultRegistryService(configPath string) (*registry.Service, error) {
	_, cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return registry.NewService(credstore.NewFileStore(cfg.Registry.File)), nil
}

// newRegistryCmd creates the registry command group.
func newRegistryCmd() *cobra.Command {
	return newRegistryCmdWith(defaultRegistryService)
}

func newRegistryCmdWith(open registryServiceFactory) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage private registry credentials",
		Long: `Manage the private registry credentials used when pulling images.

Credentials are stored in the registry file of the data directory
(registry.file in the configuration).`,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	withService := func(run func(ctx context.Context, cmd *cobra.Command, svc *registry.Service, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			svc, err := open(configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return run(ctx, cmd, svc, args)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registry credentials (passwords are never shown)",
		Args:  cobra.NoArgs,
		RunE:  withService(runRegistryList),
	})

	addCmd := &cobra.Command{
		Use:   "add <name> <url> <login>",
		Short: "Add a registry credential; the password is read from stdin",
		Args:  cobra.ExactArgs(3),
		RunE:  withService(runRegistryAdd),
	}
	cmd.AddCommand(addCmd)

	cmd.AddCommand(&cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a registry credential",
		Args:    cobra.ExactArgs(1),
		RunE:    withService(runRegistryRemove),
	})

	return cmd
}

func runRegistryList(ctx context.Context, cmd *cobra.Command, svc *registry.Service, _ []string) error {
	list, err := svc.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list registries: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(list) == 0 {
		_, err := fmt.Fprintln(out, "No registries configured")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tURL\tLOGIN")
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, r.URL, r.Login)
	}
	return tw.Flush()
}

func runRegistryAdd(ctx context.Context, cmd *cobra.Command, svc *registry.Service, args []string) error {
	password, err := readPassword(cmd.InOrStdin())
	if err != nil {
		return err
	}

	cred := domain.RegistryCredential{Name: args[0], URL: args[1], Login: args[2], Password: password}
	created, err := svc.Create(ctx, cred)
	if err != nil {
		return fmt.Errorf("failed to add registry: %w", err)
	}

	cmd.Printf("Registry '%s' added (%s)\n", created.Name, created.URL)
	return nil
}

func runRegistryRemove(ctx context.Context, cmd *cobra.Command, svc *registry.Service, args []string) error {
	if err := svc.Delete(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to remove registry: %w", err)
	}
	cmd.Printf("Registry '%s' removed\n", args[0])
	return nil
}

// readPassword reads the first line of r.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("a password must be provided on stdin")
	}
	return password, nil
}
