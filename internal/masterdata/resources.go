package masterdata

import (
	"github.com/greenlife/greenlife-admin/internal/lookup"
	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
)

func commissionTotal(rec greenlife.Record) float64 {
	return rec.Float("initial") + rec.Float("last")
}

var personSearch = []string{"staffNo", "name", "email", "phone"}

// Resources lists the CRUD screens in navigation order.
var Resources = []Resource{
	{
		Slug: "agents", Title: "Agents", Singular: "Agent", Entity: "Agent", Base: "/agent",
		Columns: []Column{
			{Key: "name", Label: "Name"},
			{Key: "idNumber", Label: "ID number"},
			{Key: "email", Label: "Email"},
			{Key: "phone", Label: "Phone"},
			{Key: "subRegion", Label: "Sub-region"},
			{Key: "distributor", Label: "Distributor"},
			{Key: "active", Label: "Status", Kind: Status},
		},
		Search: []string{"name", "idNumber", "email", "phone", "subRegion", "distributor"},
		Fields: []Field{
			{Name: "name", Label: "Name", Rules: "required"},
			{Name: "idNumber", Label: "ID number", Rules: "required"},
			{Name: "email", Label: "Email", Kind: EmailInput, Rules: "required,glemail"},
			{Name: "phone", Label: "Phone", Rules: "required"},
			{Name: "subRegionId", Label: "Sub-region", Kind: LookupInput, Rules: "required", Source: "subRegion", Lookup: lookup.SubRegions},
			{Name: "distributorId", Label: "Distributor", Kind: LookupInput, Rules: "required", Source: "distributor", Lookup: lookup.Distributors},
		},
		Toggle: true,
	},
	{
		Slug: "distributors", Title: "Distributors", Singular: "Distributor", Entity: "Distributor", Base: "/distributor",
		Columns: []Column{
			{Key: "businessName", Label: "Business name"},
			{Key: "region", Label: "Region"},
			{Key: "subRegion", Label: "Sub-region"},
			{Key: "phone", Label: "Phone"},
			{Key: "email", Label: "Email"},
			{Key: "kraPin", Label: "KRA PIN"},
			{Key: "active", Label: "Status", Kind: Status},
		},
		Search: []string{"businessName", "region", "subRegion", "phone", "email", "kraPin"},
		Fields: []Field{
			{Name: "businessName", Label: "Business name", Rules: "required"},
			{Name: "regionId", Label: "Region", Kind: LookupInput, Rules: "required", Source: "region", Lookup: lookup.Regions},
			{Name: "subRegionId", Label: "Sub-region", Kind: LookupInput, Rules: "required", Source: "subRegion", Lookup: lookup.SubRegions},
			{Name: "phone", Label: "Phone", Rules: "required"},
			{Name: "email", Label: "Email", Kind: EmailInput, Rules: "required,glemail"},
			{Name: "kraPin", Label: "KRA PIN", Rules: "required"},
		},
		Toggle: true,
	},
	{
		Slug: "regions", Title: "Regions", Singular: "Region", Entity: "Region", Base: "/region",
		Columns: []Column{{Key: "name", Label: "Name"}, {Key: "code", Label: "Code"}},
		Search:  []string{"name", "code"},
		Fields: []Field{
			{Name: "name", Label: "Name", Rules: "required"},
			{Name: "code", Label: "Code", Rules: "required"},
		},
	},
	{
		Slug: "subregions", Title: "Sub-regions", Singular: "Sub-region", Entity: "SubRegion", Base: "/subregion",
		Columns: []Column{{Key: "name", Label: "Name"}, {Key: "code", Label: "Code"}, {Key: "region", Label: "Region"}},
		Search:  []string{"name", "code", "region"},
		Fields: []Field{
			{Name: "name", Label: "Name", Rules: "required"},
			{Name: "code", Label: "Code", Rules: "required"},
			{Name: "regionId", Label: "Region", Kind: LookupInput, Rules: "required", Source: "region", Lookup: lookup.Regions},
		},
	},
	{
		Slug: "products", Title: "Products", Singular: "Product", Entity: "Product", Base: "/product",
		Columns: []Column{{Key: "description", Label: "Description"}, {Key: "price", Label: "Price", Kind: Money}, {Key: "unit", Label: "Unit"}},
		Search:  []string{"description", "unit"},
		Fields: []Field{
			{Name: "description", Label: "Description", Rules: "required"},
			{Name: "price", Label: "Price", Kind: NumberInput, Rules: "required,numeric"},
			{Name: "unit", Label: "Unit", Rules: "required"},
		},
	},
	{
		Slug: "commissions", Title: "Commissions", Singular: "Commission", Entity: "Commission", Base: "/commission",
		Columns: []Column{
			{Key: "type", Label: "Type"},
			{Key: "initial", Label: "Initial", Kind: Percent},
			{Key: "last", Label: "Last", Kind: Percent},
			{Key: "total", Label: "Total", Kind: Percent, Compute: commissionTotal},
		},
		Search: []string{"type"},
		Fields: []Field{
			{Name: "type", Label: "Type", Rules: "required"},
			{Name: "initial", Label: "Initial %", Kind: NumberInput, Rules: "required,numeric"},
			{Name: "last", Label: "Last %", Kind: NumberInput, Rules: "required,numeric"},
		},
		Prepare: func(body map[string]any) {
			initial, _ := body["initial"].(float64)
			last, _ := body["last"].(float64)
			body["total"] = initial + last
		},
	},
	{
		Slug: "users", Title: "Users", Singular: "User", Entity: "User", Base: "/registration",
		Columns: []Column{
			{Key: "staffNo", Label: "Staff no."},
			{Key: "name", Label: "Name"},
			{Key: "email", Label: "Email"},
			{Key: "phone", Label: "Phone"},
			{Key: "region", Label: "Region"},
			{Key: "group", Label: "Group"},
			{Key: "titleCode", Label: "Title"},
		},
		Search: append(append([]string{}, personSearch...), "region", "group", "titleCode"),
		Fields: []Field{
			{Name: "staffNo", Label: "Staff number", Rules: "required"},
			{Name: "name", Label: "Name", Rules: "required"},
			{Name: "email", Label: "Email", Kind: EmailInput, Rules: "required,glemail"},
			{Name: "phone", Label: "Phone", Rules: "required"},
			{Name: "regionId", Label: "Region", Kind: LookupInput, Rules: "required", Source: "region", Lookup: lookup.Regions},
			{Name: "subRegionId", Label: "Sub-region", Kind: LookupInput, Source: "subRegion", Lookup: lookup.SubRegions},
			{Name: "groupId", Label: "Group", Kind: LookupInput, Rules: "required", Source: "group", Lookup: lookup.Groups},
			{Name: "titleCode", Label: "Title code", Rules: "required"},
			{Name: "password", Label: "Password", Kind: PasswordInput, Rules: "required", CreateOnly: true},
		},
	},
	{
		Slug: "region-managers", Title: "Region managers", Singular: "Region manager", Entity: "RegionManager", Base: "/region-manager",
		Columns: []Column{
			{Key: "staffNo", Label: "Staff no."},
			{Key: "name", Label: "Name"},
			{Key: "email", Label: "Email"},
			{Key: "phone", Label: "Phone"},
			{Key: "region", Label: "Region"},
			{Key: "active", Label: "Status", Kind: Status},
		},
		Search: append(append([]string{}, personSearch...), "region"),
		Fields: []Field{
			{Name: "staffNo", Label: "Staff number", Rules: "required"},
			{Name: "name", Label: "Name", Rules: "required"},
			{Name: "email", Label: "Email", Kind: EmailInput, Rules: "required,glemail"},
			{Name: "phone", Label: "Phone", Rules: "required"},
			{Name: "regionId", Label: "Region", Kind: LookupInput, Rules: "required", Source: "region", Lookup: lookup.Regions},
			{Name: "password", Label: "Password", Kind: PasswordInput, Rules: "required", CreateOnly: true},
		},
		Toggle: true,
	},
	{
		Slug: "subregion-managers", Title: "Sub-region managers", Singular: "Sub-region manager", Entity: "SubRegionManager", Base: "/sub-region-manager",
		Columns: []Column{
			{Key: "staffNo", Label: "Staff no."},
			{Key: "name", Label: "Name"},
			{Key: "email", Label: "Email"},
			{Key: "phone", Label: "Phone"},
			{Key: "region", Label: "Region"},
			{Key: "subRegion", Label: "Sub-region"},
			{Key: "active", Label: "Status", Kind: Status},
		},
		Search: append(append([]string{}, personSearch...), "region", "subRegion"),
		Fields: []Field{
			{Name: "staffNo", Label: "Staff number", Rules: "required"},
			{Name: "name", Label: "Name", Rules: "required"},
			{Name: "email", Label: "Email", Kind: EmailInput, Rules: "required,glemail"},
			{Name: "phone", Label: "Phone", Rules: "required"},
			{Name: "regionId", Label: "Region", Kind: LookupInput, Rules: "required", Source: "region", Lookup: lookup.Regions},
			{Name: "subRegionId", Label: "Sub-region", Kind: LookupInput, Rules: "required", Source: "subRegion", Lookup: lookup.SubRegions},
			{Name: "password", Label: "Password", Kind: PasswordInput, Rules: "required", CreateOnly: true},
		},
		Toggle: true,
	},
}

// Find returns the resource registered under slug.
func Find(slug string) (Resource, bool) {
	for _, res := range Resources {
		if res.Slug == slug {
			return res, true
		}
	}
	return Resource{}, false
}
