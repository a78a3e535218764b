package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const envPrefix = "AUDIOFLOW_"

type envSection struct {
	title string
	flags []string
	// examples overrides the default value written for a flag.
	examples map[string]string
}

var envSections = []envSection{
	{
		title: "Server",
		flags: []string{"server-host", "server-port", "server-read-timeout", "server-write-timeout"},
	},
	{
		title: "Logging",
		flags: []string{"log-level", "log-format"},
	},
	{
		title: "Resolver",
		flags: []string{
			"resolver-mode", "resolver-strict", "resolver-endpoint", "resolver-timeout",
			"resolver-fallback-delay", "demo-identifier", "cache-size",
		},
		examples: map[string]string{"resolver-endpoint": "https://audioflow.example.com/api/formsAPI/getAudio"},
	},
	{
		title: "Catalog Stores (redis and sqlite modes)",
		flags: []string{"redis-host", "redis-port", "redis-password", "sqlite-path"},
	},
	{
		title: "Player Page",
		flags: []string{"language", "share-ack-duration", "flood-limit-per-minute"},
	},
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(".env.example", []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("✅ Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	rule := "# " + strings.Repeat("=", 77) + "\n"
	content.WriteString(rule)
	content.WriteString("# AudioFlow Configuration\n")
	content.WriteString(rule)
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and adjust the values\n")
	content.WriteString("# Every variable has a CLI flag equivalent (see --help)\n")
	content.WriteString("#\n")
	fmt.Fprintf(&content, "# Format: %s<SETTING>=value  CLI: --<setting>\n", envPrefix)
	content.WriteString(rule)
	content.WriteString("\n")

	for _, section := range envSections {
		writeEnvSection(&content, cmd, section)
	}

	return content.String()
}

func writeEnvSection(content *strings.Builder, cmd *cobra.Command, section envSection) {
	banner := "# " + strings.Repeat("-", 77) + "\n"
	content.WriteString(banner)
	fmt.Fprintf(content, "# %s\n", section.title)
	content.WriteString(banner)

	cliFlags := make([]string, 0, len(section.flags))
	for _, name := range section.flags {
		cliFlags = append(cliFlags, "--"+name)
	}
	fmt.Fprintf(content, "# CLI: %s\n", strings.Join(cliFlags, ", "))

	for _, name := range section.flags {
		def := getDefaultValueString(cmd, name)
		value := def
		if example, ok := section.examples[name]; ok {
			value = example
		}
		fmt.Fprintf(content, "%s=%s   # %s (default: %s)\n",
			flagToEnvVar(name), value, flagUsage(cmd, name), def)
	}
	content.WriteString("\n")
}

func flagToEnvVar(flagName string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func getDefaultValueString(cmd *cobra.Command, flagName string) string {
	if f := cmd.PersistentFlags().Lookup(flagName); f != nil {
		return f.DefValue
	}
	return ""
}

func flagUsage(cmd *cobra.Command, flagName string) string {
	if f := cmd.PersistentFlags().Lookup(flagName); f != nil {
		return f.Usage
	}
	return ""
}
