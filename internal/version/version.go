package version

// Version is the toolrun release version.
var Version = "0.1.0"
