package sqlite

import "context"

type batchCounterRepo struct {
	db dbtx
}

func (r *batchCounterRepo) GetBatchNumber(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT batch_number FROM batch_counter WHERE id = 1`).Scan(&n)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return n, nil
}

func (r *batchCounterRepo) IncrementBatchNumber(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`UPDATE batch_counter SET batch_number = batch_number + 1 WHERE id = 1 RETURNING batch_number`,
	).Scan(&n)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return n, nil
}
