// Package catalog persists recording metadata and conversion run history in
// a SQLite database.
//
// The catalog is opt-in: conversion itself never touches it unless the caller
// asks for run recording. An advisory file lock keeps concurrent sonaris
// processes from writing to the same database.
package catalog
