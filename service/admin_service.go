package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/novanet-dev/nova-incentive-server/constdef"
	"github.com/novanet-dev/nova-incentive-server/dal/dao"
	"github.com/novanet-dev/nova-incentive-server/dal/do"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AdminService manages the operator account used to authorize admin RPC
// methods.
type AdminService interface {
	RegisterAdmin(ctx context.Context, tx *gorm.DB, password string) error
	AdminExists(ctx context.Context, tx *gorm.DB) (bool, error)
	LoginAdmin(ctx context.Context, tx *gorm.DB, authHeader string) (bool, error)
}

type AdminServiceImpl struct {
	userInfoDAO dao.UserInfoDAO
}

var adminService AdminService = &AdminServiceImpl{
	userInfoDAO: dao.GetUserInfoDAOImpl(),
}

func GetAdminService() AdminService {
	return adminService
}

func (a *AdminServiceImpl) RegisterAdmin(ctx context.Context, tx *gorm.DB, password string) error {
	password = strings.TrimSpace(password)
	if len(password) < constdef.MinPasswordLength || len(password) > constdef.MaxPasswordLength {
		return errors.New("invalid admin password: out of length range")
	}

	existing, err := a.userInfoDAO.GetByUsername(ctx, tx, "admin")
	if err != nil {
		return err
	}
	if existing != nil {
		return errors.New("admin already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	info := do.UserInfo{
		Username:     "admin",
		PasswordHash: string(hash),
	}
	_, err = a.userInfoDAO.Create(ctx, tx, &info)
	return err
}

func (a *AdminServiceImpl) AdminExists(ctx context.Context, tx *gorm.DB) (bool, error) {
	info, err := a.userInfoDAO.GetByUsername(ctx, tx, "admin")
	if err != nil {
		return false, err
	}
	return info != nil, nil
}

// LoginAdmin checks an HTTP basic auth header of the form
// "Basic base64(admin:password)" against the stored credentials.
func (a *AdminServiceImpl) LoginAdmin(ctx context.Context, tx *gorm.DB, authHeader string) (bool, error) {
	const prefix = "Basic "
	if !strings.HasPrefix(authHeader, prefix) {
		return false, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(authHeader[len(prefix):])
	if err != nil {
		return false, nil
	}
	username, password, found := strings.Cut(string(decoded), ":")
	if !found || username != "admin" {
		return false, nil
	}

	info, err := a.userInfoDAO.GetByUsername(ctx, tx, "admin")
	if err != nil {
		return false, err
	}
	if info == nil {
		return false, nil
	}

	err = bcrypt.CompareHashAndPassword([]byte(info.PasswordHash), []byte(password))
	if err != nil {
		return false, nil
	}
	return true, nil
}
