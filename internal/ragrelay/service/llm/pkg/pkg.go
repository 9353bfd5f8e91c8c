package pkg

// ModuleName tags log lines written by the llm service.
const ModuleName = "llm"
