// Package costing holds the arithmetic of the business: turning raw-material
// consumption into a per-unit production cost (HPP), and turning a warung's
// stock delta into a bill, a payment status and a profit figure.
//
// Everything here is pure. Handlers load rows, call into this package and
// persist the result.
package costing
