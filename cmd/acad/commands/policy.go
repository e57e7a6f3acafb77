package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wonny/acadport/backend/internal/strategyconfig"
)

// policyCmd represents the policy command
var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "정책 파일 검증/조회",
	Long: `배정/분류 정책을 검증하거나 현재 적용될 정책을 출력합니다.

Subcommands:
  validate [file]  - 정책 파일 검증, 해시와 경고 출력
  show             - 적용될 정책 (파일 또는 환경변수)

Example:
  go run ./cmd/acad policy validate config/policy.yaml
  go run ./cmd/acad policy show`,
}

var (
	policyValidateCmd = &cobra.Command{
		Use:   "validate [file]",
		Short: "정책 파일 검증",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPolicyValidate,
	}

	policyShowCmd = &cobra.Command{
		Use:   "show",
		Short: "적용될 정책 출력",
		RunE:  runPolicyShow,
	}
)

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyValidateCmd)
	policyCmd.AddCommand(policyShowCmd)
}

func runPolicyValidate(cmd *cobra.Command, args []string) error {
	path := policyFile
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("no policy file given")
	}

	cfg, data, err := strategyconfig.Load(path)
	if err != nil {
		PrintError(fmt.Sprintf("%s: %v", path, err))
		return err
	}

	snap, err := strategyconfig.NewPolicySnapshot(cfg, data)
	if err != nil {
		return err
	}
	warnings := strategyconfig.Warn(cfg)

	if jsonOutput {
		return printJSON(map[string]interface{}{
			"policy_id":   snap.PolicyID,
			"version":     snap.Version,
			"policy_hash": snap.PolicyHash,
			"warnings":    warnings,
		})
	}

	PrintHeader("Policy " + path)
	PrintKeyValue("Policy ID", snap.PolicyID, 10)
	PrintKeyValue("Version", snap.Version, 10)
	PrintKeyValue("Hash", snap.PolicyHash, 10)
	for _, w := range warnings {
		PrintWarning(fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}
	PrintSuccess("Policy is valid")
	return nil
}

func runPolicyShow(cmd *cobra.Command, args []string) error {
	_, _, pol, err := loadBase()
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(pol)
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(pol)
}
