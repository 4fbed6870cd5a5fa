// Command taxdoc processes Italian tax documents from the command line.
package main

func main() {
	Execute()
}
