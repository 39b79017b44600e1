package cli

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/analysis-worker/internal/config"
	"github.com/example/analysis-worker/internal/plugin"
)

func newPluginsCmd(loader *config.Loader) *cobra.Command {
	flags := &runtimeFlagSet{}

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List discovered processing modules and signatures",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loader.Load(flags.toOverrides(cmd))
			if err != nil {
				return err
			}

			reg, _, err := buildRegistry(cfg, zap.NewNop())
			if err != nil {
				return err
			}

			table, err := renderPluginTable(reg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), table)
			return nil
		},
	}

	bindRuntimeFlags(cmd, flags)

	return cmd
}

func renderPluginTable(reg *plugin.Registry) (string, error) {
	data := pterm.TableData{{"Family", "Name", "Namespace"}}
	for _, family := range []plugin.Family{plugin.FamilyProcessing, plugin.FamilySignature} {
		for _, l := range reg.List(family) {
			data = append(data, []string{string(l.Family), l.Name, strconv.FormatBool(l.Namespace)})
		}
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}
