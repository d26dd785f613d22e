package model

type Role string

const (
	RoleCustomer    Role = "CUSTOMER"
	RoleSupplier    Role = "SUPPLIER"
	RoleDistributor Role = "DISTRIBUTOR"
	RoleRetailer    Role = "RETAILER"
	RoleAdmin       Role = "ADMIN"
)

// 店舗（在庫）を持てるロール
func (r Role) IsSeller() bool {
	switch r {
	case RoleSupplier, RoleDistributor, RoleRetailer:
		return true
	}
	return false
}

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin || r.IsSeller()
}

// 認証済みの利用者。
// Rolesは持っているロール全部、ActiveRoleは今回のリクエストで使うロール。
type Identity struct {
	UserID     int64
	ActiveRole Role
	Roles      []Role
}

// 注文できるか（ADMINは買い手にならない）
func (i Identity) CanBuy() bool {
	return i.UserID > 0 && i.ActiveRole.Valid() && i.ActiveRole != RoleAdmin
}

// 売り手として操作できるか
func (i Identity) CanSell() bool {
	return i.UserID > 0 && i.ActiveRole.IsSeller()
}

func (i Identity) HasRole(role Role) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}
