package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	policyFile string
	verbose    bool
	jsonOutput bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "acad",
	Short: "acadport - 교원 배정 및 학생 위험도 분류",
	Long: `acadport Unified CLI

교원-과목 자동 배정과 학생 성적/출석 기반 위험도 분류.
정책은 YAML 파일(--policy) 또는 환경변수에서 읽는다.

Usage:
  go run ./cmd/acad [command]

Examples:
  go run ./cmd/acad api
  go run ./cmd/acad allocate run --department 1 --dry-run
  go run ./cmd/acad classify --attendance 82 --final 13.5
  go run ./cmd/acad policy validate config/policy.yaml
  go run ./cmd/acad test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&policyFile, "policy", "", "policy YAML file (default: POLICY_FILE or environment)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}
