package usecase

import (
	"orbit-redemption/internal/domain"
	"orbit-redemption/internal/domain/model"
)

func requireAdmin(caller model.Caller) error {
	if !caller.IsAdmin() {
		return domain.ErrAdminOnly
	}
	return nil
}

// ownerFilterFor resolves which owners a caller may read. Admins pass "" for every
// owner, "house" for house codes, or a distributor id. Distributors may only name
// themselves; "" means their own records.
func ownerFilterFor(caller model.Caller, owner string) (model.OwnerFilter, error) {
	switch {
	case caller.IsAdmin():
		if owner == "" {
			return model.AllOwners(), nil
		}
		return model.OnlyOwner(model.ParseOwner(owner)), nil
	case caller.IsDistributor():
		if owner != "" && owner != caller.DistributorID {
			return model.OwnerFilter{}, domain.ErrForbiddenOwner
		}
		return model.OnlyOwner(model.DistributorOwner(caller.DistributorID)), nil
	}
	return model.OwnerFilter{}, domain.ErrMissingCapability
}

// canAccess reports whether caller may see records owned by o.
func canAccess(caller model.Caller, o model.Owner) bool {
	if caller.IsAdmin() {
		return true
	}
	return caller.IsDistributor() && o.Is(caller.DistributorID)
}
