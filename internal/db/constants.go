package db

// sqlTimeLayout is the layout timestamps are stored in, compatible with
// SQLite's date and time functions.
const sqlTimeLayout = "2006-01-02 15:04:05"
