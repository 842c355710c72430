package types

// Version is the canonical project version.
// The capture frame format and the CLI share this version.
const Version = "0.4.2"

// CaptureVersion is the capture frame format version written into every
// recorded session. It moves in lockstep with Version.
const CaptureVersion = Version
