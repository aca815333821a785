// Package sqlassets embeds the schema DDL so binaries stay self-contained.
package sqlassets

import _ "embed"

//go:embed schema/companies.sql
var CompaniesSQL string

//go:embed schema/users.sql
var UsersSQL string

//go:embed schema/memberships.sql
var MembershipsSQL string

//go:embed schema/relationships.sql
var RelationshipsSQL string
