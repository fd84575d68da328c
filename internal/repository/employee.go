package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/paiban/shiftplan/pkg/model"
)

// ListTeamMembers 查询团队成员
func (r *Store) ListTeamMembers(ctx context.Context, teamID uuid.UUID) ([]*model.EmployeeCandidate, error) {
	query := `
		SELECT e.id, e.name
		FROM team_members tm
		JOIN employees e ON e.id = tm.employee_id
		WHERE tm.team_id = $1 AND e.deleted_at IS NULL
		ORDER BY e.name
	`

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("查询团队成员失败: %w", err)
	}
	defer rows.Close()

	var members []*model.EmployeeCandidate
	for rows.Next() {
		e := &model.EmployeeCandidate{}
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, fmt.Errorf("扫描团队成员失败: %w", err)
		}
		members = append(members, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历团队成员失败: %w", err)
	}

	return members, nil
}
