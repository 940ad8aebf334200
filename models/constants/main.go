package constants

/*
	Defines a set of base level
	constants and enums to be used
	throughout Gohan and it's
	associated services.
*/
type SortDirection string

// Column is the name of one of the canonical fixed VCF columns
// (as it appears on the `#CHROM` line, without the leading '#').
type Column string
