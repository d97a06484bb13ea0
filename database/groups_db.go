package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pricematcher/internal/domain/models"
)

// GroupFilter фильтр списка групп сопоставления
type GroupFilter struct {
	Status        *models.GroupStatus
	MinConfidence *float64
}

// CreateGroup создает группу вместе с участниками в одной транзакции.
// Листинги-участники переводятся в статус matched: листинг принадлежит
// не более чем одной неотклоненной группе.
func (db *DB) CreateGroup(ctx context.Context, g *models.MatchingGroup) error {
	now := time.Now()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now
	if g.Status == "" {
		g.Status = models.GroupStatusAutoMatched
	}
	if g.Version == 0 {
		g.Version = 1
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("не удалось начать транзакцию: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO matching_groups (id, representative_name, min_price, max_price, avg_price,
			best_supplier_id, confidence_score, matching_method, status, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.RepresentativeName, g.MinPrice, g.MaxPrice, g.AvgPrice,
		g.BestSupplierID, g.ConfidenceScore, string(g.MatchingMethod),
		string(g.Status), g.Version, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("не удалось создать группу: %w", err)
	}

	if err := insertMembers(ctx, tx, g.ID, g.MemberListingIDs); err != nil {
		return err
	}

	return tx.Commit()
}

// insertMembers добавляет участников группы и помечает их листинги matched
func insertMembers(ctx context.Context, tx *sql.Tx, groupID string, listingIDs []int64) error {
	for _, listingID := range listingIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO group_members (group_id, listing_id) VALUES (?, ?)",
			groupID, listingID); err != nil {
			return fmt.Errorf("не удалось добавить участника %d: %w", listingID, err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE listings SET matching_status = ? WHERE id = ?",
			string(models.MatchingStatusMatched), listingID); err != nil {
			return fmt.Errorf("не удалось пометить листинг %d: %w", listingID, err)
		}
	}
	return nil
}

// AddGroupMembers добавляет новых участников в существующую группу
func (db *DB) AddGroupMembers(ctx context.Context, groupID string, listingIDs []int64) error {
	if len(listingIDs) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("не удалось начать транзакцию: %w", err)
	}
	defer tx.Rollback()

	if err := insertMembers(ctx, tx, groupID, listingIDs); err != nil {
		return err
	}

	return tx.Commit()
}

// GetGroupByID возвращает группу вместе со списком участников
func (db *DB) GetGroupByID(ctx context.Context, id string) (*models.MatchingGroup, error) {
	row := db.conn.QueryRowContext(ctx, groupSelect+" WHERE id = ?", id)

	group, err := scanGroup(row)
	if err != nil {
		return nil, err
	}

	group.MemberListingIDs, err = db.groupMemberIDs(ctx, id)
	return group, err
}

// ListGroups возвращает группы, удовлетворяющие фильтру, с участниками
func (db *DB) ListGroups(ctx context.Context, filter GroupFilter) ([]models.MatchingGroup, error) {
	query := groupSelect + " WHERE 1=1"
	var args []interface{}

	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}
	if filter.MinConfidence != nil {
		query += " AND confidence_score >= ?"
		args = append(args, *filter.MinConfidence)
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить группы: %w", err)
	}
	defer rows.Close()

	var groups []models.MatchingGroup
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *group)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range groups {
		groups[i].MemberListingIDs, err = db.groupMemberIDs(ctx, groups[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// FindGroupsByListingIDs возвращает неотклоненные группы, содержащие
// хотя бы один из указанных листингов
func (db *DB) FindGroupsByListingIDs(ctx context.Context, listingIDs []int64) ([]models.MatchingGroup, error) {
	if len(listingIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT DISTINCT g.id FROM matching_groups g
		JOIN group_members m ON g.id = m.group_id
		WHERE g.status != ? AND m.listing_id IN (` + placeholders(len(listingIDs)) + `)
		ORDER BY g.created_at, g.id`
	args := append([]interface{}{string(models.GroupStatusManualRejected)}, int64Args(listingIDs)...)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("не удалось найти группы по листингам: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	groups := make([]models.MatchingGroup, 0, len(ids))
	for _, id := range ids {
		group, err := db.GetGroupByID(ctx, id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *group)
	}
	return groups, nil
}

// UpdateGroupStatus переводит группу в новый статус с проверкой версии.
// Несовпадение версии означает конкурентное изменение — ErrConflict.
func (db *DB) UpdateGroupStatus(ctx context.Context, id string, status models.GroupStatus, version int64) error {
	result, err := db.conn.ExecContext(ctx, `
		UPDATE matching_groups SET status = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		string(status), time.Now(), id, version)
	if err != nil {
		return fmt.Errorf("не удалось обновить статус группы: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConflict
	}
	return nil
}

// UpdateGroupConfidence обновляет уверенность и представительное наименование группы
func (db *DB) UpdateGroupConfidence(ctx context.Context, id string, confidence float64, representativeName string) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE matching_groups SET confidence_score = ?, representative_name = ?, updated_at = ?
		WHERE id = ?`,
		confidence, representativeName, time.Now(), id)
	if err != nil {
		return fmt.Errorf("не удалось обновить уверенность группы: %w", err)
	}
	return nil
}

// DeleteEmptiedGroup физически удаляет автоматическую группу, оставшуюся
// без участников после слияния кластеров. Отклоненные группы не удаляются
// никогда: они сохраняются для аудита.
func (db *DB) DeleteEmptiedGroup(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("не удалось начать транзакцию: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM group_members WHERE group_id = ?", id); err != nil {
		return fmt.Errorf("не удалось удалить участников группы: %w", err)
	}
	result, err := tx.ExecContext(ctx,
		"DELETE FROM matching_groups WHERE id = ? AND status = ?",
		id, string(models.GroupStatusAutoMatched))
	if err != nil {
		return fmt.Errorf("не удалось удалить группу: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("группа %s не является автоматической, удаление запрещено", id)
	}

	return tx.Commit()
}

// RemoveGroupMembers выводит листинги из группы (при слиянии кластеров)
func (db *DB) RemoveGroupMembers(ctx context.Context, groupID string, listingIDs []int64) error {
	if len(listingIDs) == 0 {
		return nil
	}

	query := "DELETE FROM group_members WHERE group_id = ? AND listing_id IN (" + placeholders(len(listingIDs)) + ")"
	args := append([]interface{}{groupID}, int64Args(listingIDs)...)

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("не удалось вывести участников из группы: %w", err)
	}
	return nil
}

// RecomputeGroupStats транзакционно пересчитывает ценовую статистику группы.
// Вызывается при создании группы, изменении состава и изменении цены
// участника. Лучший поставщик — поставщик листинга с минимальной ценой;
// при равенстве цен побеждает меньший ID листинга (детерминизм).
func (db *DB) RecomputeGroupStats(ctx context.Context, groupID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("не удалось начать транзакцию: %w", err)
	}
	defer tx.Rollback()

	var version int64
	err = tx.QueryRowContext(ctx,
		"SELECT version FROM matching_groups WHERE id = ?", groupID).Scan(&version)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("не удалось прочитать версию группы: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT l.id, l.supplier_id, l.price FROM listings l
		JOIN group_members m ON l.id = m.listing_id
		WHERE m.group_id = ?
		ORDER BY l.id`, groupID)
	if err != nil {
		return fmt.Errorf("не удалось прочитать участников группы: %w", err)
	}

	var minPrice, maxPrice, sum float64
	var bestSupplierID string
	count := 0

	for rows.Next() {
		var listingID int64
		var supplierID string
		var price float64
		if err := rows.Scan(&listingID, &supplierID, &price); err != nil {
			rows.Close()
			return err
		}

		if count == 0 || price < minPrice {
			// Строгое сравнение при обходе по возрастанию ID дает
			// детерминированный тай-брейк: при равных ценах остается
			// поставщик листинга с меньшим ID
			minPrice = price
			bestSupplierID = supplierID
		}
		if count == 0 || price > maxPrice {
			maxPrice = price
		}
		sum += price
		count++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if count == 0 {
		return tx.Commit() // пустая группа: статистика не пересчитывается
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE matching_groups
		SET min_price = ?, max_price = ?, avg_price = ?, best_supplier_id = ?,
			updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		minPrice, maxPrice, sum/float64(count), bestSupplierID,
		time.Now(), groupID, version)
	if err != nil {
		return fmt.Errorf("не удалось обновить статистику группы: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConflict
	}

	return tx.Commit()
}

// FrozenListingIDs возвращает ID листингов, входящих в замороженные группы
// (подтвержденные или отклоненные человеком). Такие листинги исключаются
// из автоматической рекластеризации: решение человека не пересматривается.
func (db *DB) FrozenListingIDs(ctx context.Context) (map[int64]bool, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT m.listing_id FROM group_members m
		JOIN matching_groups g ON g.id = m.group_id
		WHERE g.status IN (?, ?)`,
		string(models.GroupStatusManualMatched), string(models.GroupStatusManualRejected))
	if err != nil {
		return nil, fmt.Errorf("не удалось получить замороженные листинги: %w", err)
	}
	defer rows.Close()

	frozen := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		frozen[id] = true
	}
	return frozen, rows.Err()
}

// groupMemberIDs возвращает отсортированные ID участников группы
func (db *DB) groupMemberIDs(ctx context.Context, groupID string) ([]int64, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT listing_id FROM group_members WHERE group_id = ? ORDER BY listing_id", groupID)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить участников группы: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const groupSelect = `
	SELECT id, representative_name, min_price, max_price, avg_price, best_supplier_id,
		confidence_score, matching_method, status, version, created_at, updated_at
	FROM matching_groups`

// scanGroup читает группу из строки результата (без участников)
func scanGroup(row rowScanner) (*models.MatchingGroup, error) {
	var g models.MatchingGroup
	var method, status string

	err := row.Scan(&g.ID, &g.RepresentativeName, &g.MinPrice, &g.MaxPrice, &g.AvgPrice,
		&g.BestSupplierID, &g.ConfidenceScore, &method, &status, &g.Version,
		&g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать группу: %w", err)
	}

	g.MatchingMethod = models.MatchingMethod(method)
	g.Status = models.GroupStatus(status)
	return &g, nil
}
