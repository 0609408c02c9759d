// Package domain models the comparison of CMIP6 climate-model output against
// ARM ground-site observations.
//
// # Data Sources
//
// Model output comes from the Earth System Grid Federation (ESGF), a
// distributed search-and-access network for CMIP6 simulation archives. A
// federated search node exposes a Solr-style JSON endpoint; each matching
// File document carries access URLs for plain HTTP download and OPeNDAP.
// Granules are CF-conventional NetCDF: a (time, lat, lon) field such as
// near-surface air temperature ("tas"), with time encoded as an offset from a
// reference epoch ("days since 1850-01-01") under a model-specific calendar.
//
// Observations come from the ARM (Atmospheric Radiation Measurement) user
// facility's Live Data Web Service. Files are requested per datastream and
// date range with a user/token credential pair. Datastream names follow the
// ARM convention:
//
//	<site><instrument><facility>.<level>  →  e.g. "sgpmetE13.b1"
//	means the surface meteorology instrument at Southern Great Plains
//	extended facility E13, at processing level b1.
//
// # Conventions Reconciled Here
//
// Longitude: CMIP6 grids use [0, 360) while site coordinates are signed
// degrees in [-180, 180). Model longitudes are wrapped and the axis re-sorted
// before the site's grid cell is located.
//
// Units: CMIP6 temperature is Kelvin; ARM surface meteorology reports degC.
// Model series are converted through a registered affine transform
// (x − 273.15). Conversion is idempotent: converting a degC series to degC
// is a no-op.
//
// Time: both series are resampled to calendar monthly means labeled at month
// start in UTC, producing exactly one point per covered month. The comparison
// joins the two monthly series on the month label; a month observed by only
// one side keeps a nil value on the other.
//
// # ID Generation
//
// Comparison IDs are deterministic SHA-256 hashes of
// model|experiment|variable|datastream|period, so re-running the same
// configuration yields the same ID and downstream consumers can upsert
// idempotently.
package domain
