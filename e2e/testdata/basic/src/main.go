package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println(os.Getenv("API_KEY"))
	fmt.Println(os.Getenv("STRIPE_KEY"))
}
