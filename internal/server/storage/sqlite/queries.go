package sqlite

import (
	"context"
	"fmt"

	"github.com/iudanet/authd/internal/models"
)

// queries holds every statement the repositories use
type queries struct {
	insertUser  *Update
	getUser     *Query[*models.User]
	listUsers   *Query[*models.User]
	countUsers  *Query[int]
	updateUser  *Update
	insertPwd   *Update
	getPwd      *Query[*models.Password]
	getLogin    *Query[loginRow]
	updatePwd   *Update
	insertHist  *Update
	getHist     *Query[*models.PasswordHistory]
	insertSess  *Update
	getSess     *Query[*models.Session]
	userSess    *Query[*models.Session]
	invalidate  *Update
	invalidateU *Update
	updateCSRF  *Update
	getSetting  *Query[string]
	putSetting  *Update
	delSetting  *Update
}

func (s *Storage) prepareQueries(ctx context.Context) (err error) {
	q := &queries{}

	update := func(dst **Update, query string) {
		if err != nil {
			return
		}
		*dst, err = s.PrepareUpdate(ctx, query)
	}

	update(&q.insertUser, sqlInsertUser)
	update(&q.updateUser, sqlUpdateUser)
	update(&q.insertPwd, sqlInsertPassword)
	update(&q.updatePwd, sqlUpdatePassword)
	update(&q.insertHist, sqlInsertHistory)
	update(&q.insertSess, sqlInsertSession)
	update(&q.invalidate, sqlInvalidateSession)
	update(&q.invalidateU, sqlInvalidateUserSessions)
	update(&q.updateCSRF, sqlUpdateCSRF)
	update(&q.putSetting, sqlInsertSetting)
	update(&q.delSetting, sqlDeleteSetting)
	if err != nil {
		return fmt.Errorf("failed to prepare queries: %w", err)
	}

	if q.getUser, err = PrepareQuery(ctx, s, sqlGetUser, scanUser); err != nil {
		return fmt.Errorf("failed to prepare queries: %w", err)
	}
	if q.listUsers, err = PrepareQuery(ctx, s, sqlListUsers, scanUser); err != nil {
		return fmt.Errorf("failed to prepare queries: %w", err)
	}
	if q.countUsers, err = PrepareQuery(ctx, s, sqlCountUsers, scanInt); err != nil {
		return fmt.Errorf("failed to prepare queries: %w", err)
	}
	if q.getPwd, err = PrepareQuery(ctx, s, sqlGetPassword, scanPassword); err != nil {
		return fmt.Errorf("failed to prepare queries: %w", err)
	}
	if q.getLogin, err = PrepareQuery(ctx, s, sqlGetLogin, scanLogin); err != nil {
		return fmt.Errorf("failed to prepare queries: %w", err)
	}
	if q.getHist, err = PrepareQuery(ctx, s, sqlGetHistory, scanHistory); err != nil {
		return fmt.Errorf("failed to prepare queries: %w", err)
	}
	if q.getSess, err = PrepareQuery(ctx, s, sqlGetSession, scanSession); err != nil {
		return fmt.Errorf("failed to prepare queries: %w", err)
	}
	if q.userSess, err = PrepareQuery(ctx, s, sqlGetUserSessions, scanSession); err != nil {
		return fmt.Errorf("failed to prepare queries: %w", err)
	}
	if q.getSetting, err = PrepareQuery(ctx, s, sqlGetSetting, scanString); err != nil {
		return fmt.Errorf("failed to prepare queries: %w", err)
	}

	s.q = q
	return nil
}

func scanInt(sc Scanner) (int, error) {
	var n int
	err := sc.Scan(&n)
	return n, err
}

func scanString(sc Scanner) (string, error) {
	var v string
	err := sc.Scan(&v)
	return v, err
}
