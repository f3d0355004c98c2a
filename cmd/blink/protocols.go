package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/srg/blink/internal/bledb"
	"github.com/srg/blink/internal/protocol"
)

// protocolsCmd represents the protocols command
var protocolsCmd = &cobra.Command{
	Use:   "protocols [device-name]",
	Short: "List catalog protocols",
	Long: `Lists the protocols of the active catalog with their name patterns, services
and endpoint bindings. With a device name, only the protocols accepting that
name are listed, in the order a connection would try them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProtocols,
}

func runProtocols(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	specs := env.catalog.Specifiers()
	if len(args) == 1 {
		specs = env.catalog.Lookup(args[0])
		if len(specs) == 0 {
			return fmt.Errorf("%w: %q", ErrNoProtocol, args[0])
		}
	}

	w := cmd.OutOrStdout()
	for i, spec := range specs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		printProtocol(w, spec)
	}
	return nil
}

func printProtocol(w io.Writer, spec *protocol.Specifier) {
	fmt.Fprintf(w, "%s  %s\n", labelColor.Sprint(spec.Name), strings.Join(spec.Names(), ", "))
	for _, svc := range spec.Services() {
		fmt.Fprintf(w, "  service %s%s\n", bledb.NormalizeUUID(svc), knownName(bledb.LookupService(svc)))
		for _, b := range spec.Bindings(svc) {
			fmt.Fprintf(w, "    %s %s%s\n", valueColor.Sprintf("%-14s", b.Endpoint), bledb.NormalizeUUID(b.UUID), knownName(bledb.LookupCharacteristic(b.UUID)))
		}
	}
}

func knownName(name string) string {
	if name != "" {
		return noteColor.Sprintf(" (%s)", name)
	}
	return ""
}
