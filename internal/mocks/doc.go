// Package mocks provides shared mock implementations for testing.
//
// # Usage
//
//	import "solace/internal/mocks"
//
//	func TestSomething(t *testing.T) {
//	    mockLLM := mocks.NewMockLLMClient()
//	    mockLLM.RespondWith("It sounds like a heavy week.")
//	    // Use mockLLM in test...
//	}
//
// # Available Mocks
//
//   - MockLLMClient: Mock for the llm.LLMClient interface
package mocks
