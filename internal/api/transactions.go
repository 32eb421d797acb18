package api

import (
	"context"

	"piron-pools-go/internal/models"
)

func toRecords(transactions []models.Transaction) []models.TransactionRecord {
	records := make([]models.TransactionRecord, 0, len(transactions))
	for _, tx := range transactions {
		records = append(records, models.TransactionRecord{
			Id:          tx.Id,
			PoolId:      tx.PoolId,
			Type:        tx.Type,
			Amount:      tx.Amount,
			Shares:      tx.Shares,
			TxHash:      tx.TxHash,
			BlockNumber: tx.BlockNumber,
			Status:      tx.Status,
			CreatedAt:   tx.CreatedAt,
		})
	}
	return records
}

// GetUserTransactions returns the principal's own history, newest first.
func (s *Service) GetUserTransactions(ctx context.Context, p *models.Principal, limit, offset int) ([]models.TransactionRecord, error) {
	user, err := s.EnsureUser(ctx, p)
	if err != nil {
		return nil, err
	}

	transactions, err := s.dbService.GetUserTransactions(ctx, user.Id, clampLimit(limit), clampOffset(offset))
	if err != nil {
		return nil, err
	}
	return toRecords(transactions), nil
}

// GetPoolTransactions returns a pool's history, newest first.
func (s *Service) GetPoolTransactions(ctx context.Context, poolId string, limit, offset int) ([]models.TransactionRecord, error) {
	if _, err := s.dbService.GetPool(ctx, poolId); err != nil {
		return nil, err
	}

	transactions, err := s.dbService.GetPoolTransactions(ctx, poolId, clampLimit(limit), clampOffset(offset))
	if err != nil {
		return nil, err
	}
	return toRecords(transactions), nil
}
