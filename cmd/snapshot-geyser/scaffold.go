package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/iancoleman/strcase"
	"github.com/spf13/cobra"
)

func scaffoldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scaffold [flags]",
		Short: "Generate the skeleton of a geyser plugin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			location, _ := cmd.Flags().GetString("location")
			module, _ := cmd.Flags().GetString("module")
			if name == "" || location == "" {
				return fmt.Errorf("both 'name' and 'location' must be specified")
			}
			if module == "" {
				module = "example.com/geyser-plugin-" + strcase.ToKebab(name)
			}
			return generatePluginFiles(name, module, location)
		},
	}

	cwd, _ := os.Getwd()
	cmd.Flags().String("location", cwd, "Specify the location to create a plugin folder")
	cmd.Flags().String("name", "", "Specify the plugin name")
	cmd.Flags().String("module", "", "Specify the Go module path of the plugin")
	return cmd
}

type scaffoldData struct {
	Name        string
	PackageName string
	Module      string
}

var scaffoldTemplates = map[string]string{
	"plugin.go":          pluginTemplate,
	"cmd/grpc/main.go":   grpcMainTemplate,
	"cmd/native/main.go": nativeMainTemplate,
	"config/plugin.json": pluginConfigTemplate,
}

// generatePluginFiles creates a folder named after the plugin holding a plugin and the mains serving it
func generatePluginFiles(name, module, location string) error {
	data := scaffoldData{
		Name:        name,
		PackageName: strcase.ToSnake(name),
		Module:      module,
	}
	pluginDir := filepath.Join(location, strcase.ToKebab(name))

	for file, text := range scaffoldTemplates {
		tmpl, err := template.New(file).
			Funcs(template.FuncMap{
				"toPascalcase": strcase.ToCamel,
			}).Parse(text)
		if err != nil {
			return fmt.Errorf("error creating template %s: %w", file, err)
		}

		path := filepath.Join(pluginDir, filepath.FromSlash(file))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("error creating directory %s: %w", filepath.Dir(path), err)
		}
		if err := writeTemplate(path, tmpl, data); err != nil {
			return err
		}
	}

	fmt.Printf("Plugin files created successfully for '%s' in location '%s'\n", name, pluginDir)
	return nil
}

func writeTemplate(path string, tmpl *template.Template, data scaffoldData) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating file %s: %w", path, err)
	}
	defer file.Close()

	if err := tmpl.Execute(file, data); err != nil {
		return fmt.Errorf("error writing to file %s: %w", path, err)
	}
	return nil
}

const pluginTemplate = `package {{ .PackageName }}

import (
	"log/slog"

	"github.com/plerkle-io/snapshot-geyser/geyser"
)

type Plugin struct {
	accounts uint64
}

func New() geyser.Plugin {
	return &Plugin{}
}

func (p *Plugin) Name() string {
	return "{{ .Name }}"
}

func (p *Plugin) OnLoad(configFile string, isReload bool) error {
	slog.Info("loaded", "config", configFile)
	return nil
}

func (p *Plugin) OnUnload() {}

func (p *Plugin) UpdateAccount(account geyser.ReplicaAccountInfo, slot uint64, isStartup bool) error {
	p.accounts++
	return nil
}

func (p *Plugin) NotifyEndOfStartup() error {
	slog.Info("end of startup", "accounts", p.accounts)
	return nil
}

func (p *Plugin) AccountDataNotificationsEnabled() bool {
	return true
}

func (p *Plugin) TransactionNotificationsEnabled() bool {
	return false
}
`

const grpcMainTemplate = `package main

import (
	"github.com/plerkle-io/snapshot-geyser/plugin"

	{{ .PackageName }} "{{ .Module }}"
)

func main() {
	if err := plugin.Serve(&plugin.ServeOpts{Plugin: {{ .PackageName }}.New()}); err != nil {
		panic(err)
	}
}
`

const nativeMainTemplate = `// Build with: go build -buildmode=plugin -o lib{{ .PackageName }}.so ./cmd/native
package main

import (
	"github.com/plerkle-io/snapshot-geyser/geyser"

	{{ .PackageName }} "{{ .Module }}"
)

var GeyserPluginABIVersion = geyser.ABIVersion

// {{ .Name | toPascalcase }} plugin constructor looked up by the host
func NewGeyserPlugin() geyser.Plugin {
	return {{ .PackageName }}.New()
}

func main() {}
`

const pluginConfigTemplate = `{
  "libpath": "../lib{{ .PackageName }}.so",
  "protocol": "native"
}
`
