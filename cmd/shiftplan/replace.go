package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/paiban/shiftplan/pkg/assignment"
	"github.com/paiban/shiftplan/pkg/model"
)

func replaceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replace",
		Short: "校验并整体替换排班计划的分配",
		Long: `从 YAML 文件读取分配列表，校验通过后在一个事务内替换排班计划的全部分配。
空列表会清空排班计划。--dry-run 只列出全部冲突，不写入。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer app.close()

			input, _ := cmd.Flags().GetString("input")
			rawOwner, _ := cmd.Flags().GetString("owner")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			ownerID, err := uuid.Parse(rawOwner)
			if err != nil {
				return fmt.Errorf("无效的经理ID %q: %w", rawOwner, err)
			}
			req, err := readReplaceRequest(input)
			if err != nil {
				return err
			}

			store, err := app.openStore(cmd)
			if err != nil {
				return err
			}
			replacer := assignment.NewReplacer(store, nil, app.log)
			requester := model.Requester{UserID: ownerID, Role: model.RoleManager}
			out := cmd.OutOrStdout()

			if dryRun {
				conflicts, err := replacer.Validate(cmd.Context(), requester, req)
				if err != nil {
					return err
				}
				if len(conflicts) == 0 {
					fmt.Fprintf(out, "校验通过: %d 条分配\n", len(req.Assignments))
					return nil
				}
				fmt.Fprintf(out, "发现 %d 个冲突:\n", len(conflicts))
				for _, c := range conflicts {
					fmt.Fprintf(out, "  - [%s] %s\n", c.Type, c.Message)
				}
				return fmt.Errorf("分配校验未通过")
			}

			saved, err := replacer.Replace(cmd.Context(), requester, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "已替换排班计划 %s 的分配: %d 条\n", req.ScheduleID, len(saved))
			return nil
		},
	}

	cmd.Flags().String("input", "", "分配列表 YAML 文件")
	cmd.Flags().String("owner", "", "排班计划所属经理ID")
	cmd.Flags().Bool("dry-run", false, "只校验，不写入")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("owner")

	return cmd
}

func readReplaceRequest(path string) (assignment.ReplaceRequest, error) {
	var req assignment.ReplaceRequest
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("读取分配文件失败: %w", err)
	}
	if err := yaml.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("解析分配文件失败: %w", err)
	}
	return req, nil
}
