// Package main is the entry point for the diaspora-api service.
package main

func main() {
	Execute()
}
