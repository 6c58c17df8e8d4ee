package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dwmkerr/shellrec/internal/config"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Print local diagnostic information for troubleshooting",
		RunE: func(cmd *cobra.Command, _ []string) error {
			exe, _ := os.Executable()
			exe = strings.TrimSpace(exe)
			look, _ := exec.LookPath("shellrec")
			look = strings.TrimSpace(look)

			fmt.Fprintf(os.Stdout, "shellrec_executable=%s\n", exe)
			if look != "" {
				fmt.Fprintf(os.Stdout, "shellrec_on_path=%s\n", look)
			}
			if exe != "" && look != "" {
				absExe, _ := filepath.EvalSymlinks(exe)
				absLook, _ := filepath.EvalSymlinks(look)
				if absExe != "" && absLook != "" && absExe != absLook {
					fmt.Fprintln(os.Stdout, "warning=you_are_not_running_the_same_shellrec_as_on_PATH (adjust PATH or call the intended binary explicitly)")
				}
			}

			for _, name := range []string{"SHELLWRIGHT_URL", "SHELLWRIGHT_OUTPUT", "DEMO_HOST"} {
				fmt.Fprintf(os.Stdout, "%s=%s\n", name, os.Getenv(name))
			}

			cfgPath := effectiveConfigPath(cmd)
			fmt.Fprintf(os.Stdout, "config_path=%s\n", cfgPath)
			cfg, err := config.Load(cfgPath)
			if err != nil {
				fmt.Fprintf(os.Stdout, "config_error=%s\n", err.Error())
				return nil
			}
			if cfg == nil {
				fmt.Fprintln(os.Stdout, "config_present=false")
				return nil
			}
			fmt.Fprintln(os.Stdout, "config_present=true")
			fmt.Fprintf(os.Stdout, "current_context=%s\n", strings.TrimSpace(cfg.CurrentContext))
			names := make([]string, 0, len(cfg.Contexts))
			for k := range cfg.Contexts {
				names = append(names, k)
			}
			sort.Strings(names)
			for _, name := range names {
				c := cfg.Contexts[name]
				if c == nil {
					continue
				}
				fmt.Fprintf(os.Stdout, "context=%s server=%s ssh=%s output=%s timeout=%d\n",
					name,
					strings.TrimSpace(c.Server),
					strings.TrimSpace(c.SSHHost),
					strings.TrimSpace(c.OutputDir),
					c.TimeoutSeconds,
				)
			}
			return nil
		},
	}
	return cmd
}

func effectiveConfigPath(cmd *cobra.Command) string {
	if flag := cmd.Flags().Lookup("config"); flag != nil && strings.TrimSpace(flag.Value.String()) != "" {
		return flag.Value.String()
	}
	if v := os.Getenv("SHELLREC_CONFIG"); v != "" {
		return v
	}
	return config.DefaultConfigPath()
}
