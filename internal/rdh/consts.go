// Package rdh decodes and validates the fixed-size RDH-CRU record that
// introduces every CRU payload.
package rdh

// Size is the on-wire byte length of an RDH-CRU record, all versions.
const Size = 64

// HeaderSize is the only legal value of Rdh0.HeaderSize.
const HeaderSize = 0x40

// MaxBunchCrossing is the highest legal value of Rdh1.Bc.
const MaxBunchCrossing = 0xDEB

// ITSSystemID is the system_id pinned by the ITS specialization.
const ITSSystemID = 32

// MaxDataWrapper is the highest legal value of the 4-bit dw field.
const MaxDataWrapper = 1

// MaxDataFormat is the highest legal value of data_format. 1 is not a
// legal value in between: only 0 (GBT frame, stride 16) and 2 (GBT
// word, stride 10) are defined.
const MaxDataFormat = 2

// MaxLinkID is the highest legal "real" link_id; 12..14 are unassigned
// and ULLinkID is the one reserved value above the real range.
const MaxLinkID = 11

// ULLinkID is the sole legal link_id value above MaxLinkID, used for
// the user-logic link.
const ULLinkID = 15
