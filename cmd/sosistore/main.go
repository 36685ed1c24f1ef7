// Command sosistore inspects, converts and serves SOSI and FlatGeobuf
// files as read-only feature stores.
package main

func main() {
	Execute()
}
