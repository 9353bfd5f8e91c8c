package pkg

// ModuleName tags log lines written by the chat service.
const ModuleName = "chat"
