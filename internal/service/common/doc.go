// Package common holds helpers shared by the sampling and decision
// services, currently the single-instance startup guard.
package common
