package model

// HouseOwnerID is the display identifier for codes minted by the admin without a distributor.
const HouseOwnerID = "house"

// Owner attributes codes and batches either to a distributor or to the house.
type Owner struct {
	DistributorID string // empty for the house
}

func HouseOwner() Owner                       { return Owner{} }
func DistributorOwner(id string) Owner        { return Owner{DistributorID: id} }
func (o Owner) IsHouse() bool                 { return o.DistributorID == "" }
func (o Owner) Is(distributorID string) bool { return !o.IsHouse() && o.DistributorID == distributorID }

func (o Owner) String() string {
	if o.IsHouse() {
		return HouseOwnerID
	}
	return o.DistributorID
}

// ParseOwner maps "house" to the house owner and anything else to a distributor.
func ParseOwner(s string) Owner {
	if s == HouseOwnerID {
		return HouseOwner()
	}
	return DistributorOwner(s)
}

// OwnerFilter selects codes for reads. All ignores Owner.
type OwnerFilter struct {
	All   bool
	Owner Owner
}

func AllOwners() OwnerFilter        { return OwnerFilter{All: true} }
func OnlyOwner(o Owner) OwnerFilter { return OwnerFilter{Owner: o} }

// Matches reports whether o is selected by the filter.
func (f OwnerFilter) Matches(o Owner) bool {
	return f.All || f.Owner == o
}
