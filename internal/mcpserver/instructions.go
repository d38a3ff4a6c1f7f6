package mcpserver

// Instructions is sent to clients on initialize.
const Instructions = `# Feature Tree

Two parallel trees: Features (atomic units of code) and Workflows
(user-facing experiences composed of features).

## Atomic features

A feature is something you can implement in one task and test on its own.
"User Authentication" is a category. "User Login", "Email Verification"
and "Password Reset" are features.

## Record symbols, files and notes

After implementing a feature, update it with:

| Field           | Holds                           | Example                     |
|-----------------|---------------------------------|-----------------------------|
| code_symbols    | identifiers an LSP can resolve  | handleLogin, UserSession    |
| files           | paths involved                  | src/auth/login.ts           |
| technical_notes | what the code does not show     | Uses Redis for rate limits  |

Later work queries these instead of rereading the codebase.

## Workflows

Workflows use the same dotted id hierarchy: USER_ONBOARDING is the
journey, USER_ONBOARDING.signup a flow under it. A workflow lists the
feature ids it relies on in depends_on, so changing a feature shows which
workflows it affects, and designing a workflow shows which features are
still missing.

## Shared infrastructure

Name shared utilities INFRA.* (rate limiter, cache). Features declare the
features they rely on in uses; get_feature reports uses_features and
used_by_features.

## Tools

Features: search_features, get_feature, add_feature, update_feature, delete_feature
Workflows: search_workflows, get_workflow, add_workflow, update_workflow, delete_workflow

## Protocol

1. Search before implementing.
2. Keep features atomic; compose them with workflows.
3. Update symbols, files and notes after implementing.
4. Ask when uncertain.

Status: planned, in-progress, done. Deleting a planned entry removes it;
deleting anything else marks it deleted. Entries with an in-progress or
done child cannot be deleted.
`
