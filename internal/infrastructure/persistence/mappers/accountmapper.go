// Package mappers converts between domain entities and persistence models.
package mappers

import (
	"time"

	"parceldesk/internal/domain/account"
	"parceldesk/internal/infrastructure/persistence/models"
)

// AccountMapper converts between account entities and AccountModel.
type AccountMapper struct{}

func NewAccountMapper() *AccountMapper {
	return &AccountMapper{}
}

func (m *AccountMapper) ToModel(a *account.Account) *models.AccountModel {
	return &models.AccountModel{
		ID:             a.ID(),
		DisplayName:    a.DisplayName(),
		Email:          a.Email(),
		CredentialHash: a.CredentialHash(),
		Role:           a.Role().String(),
		Active:         a.IsActive(),
		CreatedAt:      a.CreatedAt().UnixMilli(),
		UpdatedAt:      a.UpdatedAt().UnixMilli(),
	}
}

func (m *AccountMapper) ToDomain(model *models.AccountModel) *account.Account {
	return account.ReconstructAccount(
		model.ID,
		model.DisplayName,
		model.Email,
		model.CredentialHash,
		account.Role(model.Role),
		model.Active,
		time.UnixMilli(model.CreatedAt).UTC(),
		time.UnixMilli(model.UpdatedAt).UTC(),
	)
}

func (m *AccountMapper) ToDomainList(modelList []*models.AccountModel) []*account.Account {
	accounts := make([]*account.Account, 0, len(modelList))
	for _, model := range modelList {
		accounts = append(accounts, m.ToDomain(model))
	}
	return accounts
}
