package insight

// Placeholder labels for absent geography. Buckets are always keyed by a
// non-empty label so every resolvable order lands in exactly one bucket.
const (
	UnknownCity    = "Unknown city"
	UnknownRegion  = "Unknown region"
	UnknownCountry = "Unknown country"
)

// Location is the resolved geography of a customer.
type Location struct {
	Name     string
	City     string
	Region   string
	RegionID int64
	Country  string
}

// BuildLocationIndex maps customer identifiers to resolved locations.
// Absent geo fields are replaced with the fixed placeholders. The index
// is a pure function of the fetched customer set and is rebuilt on
// every request.
func BuildLocationIndex(customers []Customer) map[int64]Location {
	index := make(map[int64]Location, len(customers))
	for _, c := range customers {
		loc := Location{
			Name:     c.Name,
			City:     c.City,
			Region:   c.Region,
			RegionID: c.RegionID,
			Country:  c.Country,
		}
		if loc.City == "" {
			loc.City = UnknownCity
		}
		if loc.Region == "" {
			loc.Region = UnknownRegion
		}
		if loc.Country == "" {
			loc.Country = UnknownCountry
		}
		index[c.ID] = loc
	}
	return index
}

// BuildOrderCustomerIndex maps order identifiers to their owning
// customer. Orders without a customer reference are omitted so lookups
// report them as unresolved.
func BuildOrderCustomerIndex(orders []Order) map[int64]int64 {
	index := make(map[int64]int64, len(orders))
	for _, o := range orders {
		if o.HasCustomer() {
			index[o.ID] = o.CustomerID
		}
	}
	return index
}
