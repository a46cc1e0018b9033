package store

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"zip-territory/internal/logger"
	"zip-territory/internal/territory"
	"zip-territory/internal/zipcode"
)

// 状态筛选取值：PROSPECTIVE 匹配所有非 ACTIVE（含 NULL）的行
const (
	FilterActive      = zipcode.StatusActive
	FilterProspective = "PROSPECTIVE"
)

// Filter: 归属查询条件，空字段表示不过滤
type Filter struct {
	ZIPPrefix string
	City      string
	State     string
	Status    string
}

// likeEscaper：使 LIKE 模式中的 % 与 _ 按字面匹配，转义符为反斜杠
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func (f Filter) conditions() []sq.Sqlizer {
	var out []sq.Sqlizer
	if p := strings.TrimSpace(f.ZIPPrefix); p != "" {
		out = append(out, sq.Expr(`zip LIKE ? ESCAPE '\'`, escapeLike(p)+"%"))
	}
	if c := strings.TrimSpace(f.City); c != "" {
		out = append(out, sq.Expr(`LOWER(city) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(c))+"%"))
	}
	if st := strings.TrimSpace(f.State); st != "" {
		out = append(out, sq.Expr("UPPER(state_id) = ?", strings.ToUpper(st)))
	}
	switch strings.ToUpper(strings.TrimSpace(f.Status)) {
	case "":
	case FilterActive:
		out = append(out, sq.Eq{"owner_status": FilterActive})
	case FilterProspective:
		out = append(out, sq.Or{sq.Eq{"owner_status": nil}, sq.NotEq{"owner_status": FilterActive}})
	default:
		// 未知状态不匹配任何行
		out = append(out, sq.Expr("1 = 0"))
	}
	return out
}

// Page: 分页结果
type Page struct {
	Total int
	Items []territory.TerritoryAssignment
}

// ListAssignments: 按条件分页查询，按邮编升序；page 从 1 开始
func (s *Store) ListAssignments(ctx context.Context, f Filter, page, size int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	conds := f.conditions()
	countQ := sq.Select("COUNT(*)").From("territory_assignments").PlaceholderFormat(s.ph)
	listQ := sq.Select(AssignmentColumns...).From("territory_assignments").
		OrderBy("zip").Limit(uint64(size)).Offset(uint64((page - 1) * size)).PlaceholderFormat(s.ph)
	for _, c := range conds {
		countQ = countQ.Where(c)
		listQ = listQ.Where(c)
	}

	var out Page
	q, args, err := countQ.ToSql()
	if err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&out.Total); err != nil {
		return nil, err
	}
	q, args, err = listQ.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.L().Debug("db_list_assignments", "total", out.Total, "page", page, "size", size, "items", len(out.Items))
	return &out, nil
}

func scanAssignment(rows *sql.Rows) (territory.TerritoryAssignment, error) {
	var a territory.TerritoryAssignment
	var city, stateID, stateName, county sql.NullString
	var email, name, status sql.NullString
	var pEmail, pName, reason sql.NullString
	err := rows.Scan(&a.ZIP, &a.Lat, &a.Lng, &city, &stateID, &stateName, &county,
		&email, &name, &status, &a.DealCount, &pEmail, &pName, &reason)
	a.City, a.StateID, a.StateName, a.CountyName = city.String, stateID.String, stateName.String, county.String
	a.OwnerEmail, a.OwnerName, a.OwnerStatus = email.String, name.String, status.String
	a.ProspectiveOwnerEmail, a.ProspectiveOwnerName, a.InferenceReason = pEmail.String, pName.String, reason.String
	return a, err
}

// Stats: 归属统计；owned 为存在负责人邮箱的行，其余计为 prospective
type Stats struct {
	Total       int `json:"total"`
	Owned       int `json:"owned"`
	Prospective int `json:"prospective"`
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	q, args, err := sq.Select("COUNT(*)", "COUNT(owner_email)").From("territory_assignments").PlaceholderFormat(s.ph).ToSql()
	if err != nil {
		return nil, err
	}
	var st Stats
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&st.Total, &st.Owned); err != nil {
		return nil, err
	}
	st.Prospective = st.Total - st.Owned
	return &st, nil
}

// CountAssignments: 归属表行数（健康检查使用）
func (s *Store) CountAssignments(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM territory_assignments").Scan(&n)
	return n, err
}
